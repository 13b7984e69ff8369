package sim_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/sim"
)

var _ = Describe("System", func() {
	baseConfig := func() config.Configuration {
		return config.Configuration{
			Dispensers:     2,
			Cells:          1,
			SetsTarget:     1,
			RequiredPerSet: [4]int{1, 1, 1, 1},
			Velocity:       20,
			Length:         8,
			Seed:           1,
		}
	}

	It("reaches a single SET with ample parts on a short belt (single-cell happy path)", func() {
		cfg := baseConfig()
		Expect(cfg.Validate()).To(Succeed())

		system := sim.New(cfg, prometheus.NewRegistry())
		sup := sim.NewSupervisor(system)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		result, err := sup.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(sim.OutcomeSuccess))
		Expect(result.SetsCompleted).To(BeNumerically(">=", cfg.SetsTarget))
		// Part of invariant 1: sets_in_progress is never negative.
		Expect(result.SetsInProgress).To(BeNumerically(">=", 0))
	})

	It("returns promptly once its context is cancelled, regardless of target reachability", func() {
		cfg := baseConfig()
		cfg.SetsTarget = 1000
		Expect(cfg.Validate()).To(Succeed())

		system := sim.New(cfg, prometheus.NewRegistry())
		sup := sim.NewSupervisor(system)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := sup.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
	})

	It("keeps every worker from blocking past cancellation with a multi-cell configuration", func() {
		cfg := baseConfig()
		cfg.Cells = 3
		cfg.SetsTarget = 50
		Expect(cfg.Validate()).To(Succeed())

		system := sim.New(cfg, prometheus.NewRegistry())
		sup := sim.NewSupervisor(system)

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := sup.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
	})
})
