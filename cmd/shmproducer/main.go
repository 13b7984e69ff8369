// Command shmproducer writes a stream of part-type codes into a
// fixed-size System V shared-memory segment, polled by shmconsumer (spec
// §6). It is explicitly out of the core simulation's process boundary: a
// standalone demo of the legacy IPC protocol the spec calls out.
package main

import (
	"flag"
	"math/rand"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kitline/kitline/internal/nlog"
	"github.com/kitline/kitline/internal/shmcodes"
)

func main() {
	key := flag.Int("key", 0x4b49544c, "SysV IPC key (default 'KITL')")
	slots := flag.Int("slots", 64, "number of type-code cells in the segment")
	count := flag.Int("count", 200, "number of codes to write before end-of-stream")
	seed := flag.Int64("seed", time.Now().UnixNano(), "RNG seed")
	flag.Parse()

	segSize := *slots * shmcodes.CodeSize
	shmID, err := unix.SysvShmGet(*key, segSize, unix.IPC_CREAT|0o600)
	if err != nil {
		nlog.Fatalf("shmproducer: shmget: %v", err)
	}
	seg, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		nlog.Fatalf("shmproducer: shmat: %v", err)
	}
	defer func() { _ = unix.SysvShmDetach(seg) }()

	rng := rand.New(rand.NewSource(*seed))
	nlog.Infof("shmproducer: attached segment id=%d slots=%d", shmID, *slots)

	for i := 0; i < *count; i++ {
		code := int32(1 + rng.Intn(4)) // type codes 1..4
		shmcodes.Write(seg, i%(*slots), code)
		time.Sleep(20 * time.Millisecond)
	}
	shmcodes.Write(seg, *count%(*slots), shmcodes.EndOfStream)
	nlog.Infof("shmproducer: wrote %d codes, signaled end-of-stream", *count)
}
