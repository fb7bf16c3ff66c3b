//go:build unix

package arena

import "golang.org/x/sys/unix"

// backing on unix platforms is an anonymous mmap region: a single
// large mapping per shard, requested once at shard creation, never
// resized (flush rewinds the bump offset instead of remapping).
type backing struct {
	data []byte
}

func newBacking(size int) (backing, error) {
	if size == 0 {
		size = 1
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return backing{}, err
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
	return backing{data: data}, nil
}

func (b backing) bytes() []byte { return b.data }

func (b backing) release() error {
	if b.data == nil {
		return nil
	}
	return unix.Munmap(b.data)
}
