//go:build unix

// File: poller/waker_unix.go
// Author: momentics <momentics@gmail.com>
//
// Self-pipe waker shared by the kqueue, poll and select backends.
// Writing a byte to the pipe makes the read end pollable and breaks
// the backend out of its wait syscall.

package poller

import "golang.org/x/sys/unix"

type pipeWaker struct {
	r, w int
}

func newPipeWaker() (*pipeWaker, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, err
	}
	for _, fd := range p {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, err
		}
		unix.CloseOnExec(fd)
	}
	return &pipeWaker{r: p[0], w: p[1]}, nil
}

// readFd is the descriptor the backend watches for readability.
func (pw *pipeWaker) readFd() int { return pw.r }

// wake makes the read end readable. A full pipe already guarantees a
// pending wakeup, so EAGAIN is not an error.
func (pw *pipeWaker) wake() error {
	_, err := unix.Write(pw.w, []byte{0})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drain consumes queued wakeup bytes so the pipe stops polling ready.
func (pw *pipeWaker) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(pw.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (pw *pipeWaker) close() {
	unix.Close(pw.r)
	unix.Close(pw.w)
}
