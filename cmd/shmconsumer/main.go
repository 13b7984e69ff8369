// Command shmconsumer polls a System V shared-memory segment written by
// shmproducer until it observes the end-of-stream code (spec §6).
package main

import (
	"flag"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kitline/kitline/internal/nlog"
	"github.com/kitline/kitline/internal/shmcodes"
)

func main() {
	key := flag.Int("key", 0x4b49544c, "SysV IPC key (default 'KITL'), must match shmproducer")
	slots := flag.Int("slots", 64, "number of type-code cells in the segment")
	flag.Parse()

	segSize := *slots * shmcodes.CodeSize
	shmID, err := unix.SysvShmGet(*key, segSize, 0o600)
	if err != nil {
		nlog.Fatalf("shmconsumer: shmget: %v", err)
	}
	seg, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		nlog.Fatalf("shmconsumer: shmat: %v", err)
	}
	defer func() { _ = unix.SysvShmDetach(seg) }()

	nlog.Infof("shmconsumer: attached segment id=%d slots=%d", shmID, *slots)

	counts := make(map[int32]int)
	i := 0
	for {
		code := shmcodes.Read(seg, i%(*slots))
		if code == shmcodes.EndOfStream {
			nlog.Infof("shmconsumer: end-of-stream at slot %d", i%(*slots))
			break
		}
		if code != shmcodes.Empty {
			counts[code]++
		}
		i++
		time.Sleep(10 * time.Millisecond)
	}
	for code := int32(1); code <= 4; code++ {
		nlog.Infof("shmconsumer: type %d count=%d", code, counts[code])
	}
}
