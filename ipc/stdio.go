package ipc

import "io"

// StdioConn adapts a pair of unidirectional streams (typically a
// spawned process's stdout/stdin, or the child's own os.Stdin/os.Stdout)
// into the single io.ReadWriteCloser NewChannel expects (§4.6: the
// child and the privileged parent exchange frames over whichever
// descriptor pair connects them; a process's standard streams are one
// such pair and need no extra plumbing).
type StdioConn struct {
	R io.Reader
	W io.Writer
	C io.Closer
}

// NewStdioConn builds a StdioConn. c may be nil if neither stream owns
// a closer worth calling (e.g. a child's own os.Stdin/os.Stdout, which
// the runtime closes on process exit regardless).
func NewStdioConn(r io.Reader, w io.Writer, c io.Closer) *StdioConn {
	return &StdioConn{R: r, W: w, C: c}
}

func (s *StdioConn) Read(p []byte) (int, error)  { return s.R.Read(p) }
func (s *StdioConn) Write(p []byte) (int, error) { return s.W.Write(p) }

func (s *StdioConn) Close() error {
	if s.C != nil {
		return s.C.Close()
	}
	return nil
}
