package replication

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/faizanhussain2310/goredis-core/internal/command"
	"github.com/faizanhussain2310/goredis-core/internal/protocol"
)

// SetMasterAuth configures the password sent via AUTH before SYNC when
// this server is a replica (the `masterauth` directive).
func (m *Manager) SetMasterAuth(password string) {
	m.mu.Lock()
	m.masterAuth = password
	m.mu.Unlock()
}

// replicaLink is the background connection this server maintains to
// its configured master (§4.I, "Replica side"): Connect, on each loop
// tick try to establish TCP, handshake, full load, then stream.
type replicaLink struct {
	m    *Manager
	host string
	port string

	cancel chan struct{}
	wg     sync.WaitGroup
}

func newReplicaLink(m *Manager, host, port string) *replicaLink {
	return &replicaLink{m: m, host: host, port: port, cancel: make(chan struct{})}
}

func (l *replicaLink) start() {
	l.wg.Add(1)
	go l.run()
}

func (l *replicaLink) stop() {
	close(l.cancel)
	l.wg.Wait()
}

func (l *replicaLink) run() {
	defer l.wg.Done()

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0

	for {
		select {
		case <-l.cancel:
			return
		default:
		}

		if err := l.connectOnce(); err != nil {
			if l.m.log != nil {
				l.m.log.Warn("replica link to master failed, retrying",
					zap.String("master", net.JoinHostPort(l.host, l.port)), zap.Error(err))
			}
			d := b.NextBackOff()
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-l.cancel:
				timer.Stop()
				return
			}
			continue
		}
		b.Reset()

		select {
		case <-l.cancel:
			return
		default:
		}
	}
}

func (l *replicaLink) connectOnce() error {
	addr := net.JoinHostPort(l.host, l.port)
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial master: %w", err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)

	l.m.mu.Lock()
	auth := l.m.masterAuth
	l.m.mu.Unlock()

	if auth != "" {
		if err := sendCommand(conn, "AUTH", auth); err != nil {
			return err
		}
		if _, err := readLine(r); err != nil {
			return fmt.Errorf("auth reply: %w", err)
		}
	}

	if err := sendCommand(conn, "SYNC"); err != nil {
		return err
	}
	dump, err := readBulk(r)
	if err != nil {
		return fmt.Errorf("read sync dump: %w", err)
	}
	if err := l.m.downloadAndLoad(dump); err != nil {
		return fmt.Errorf("load sync dump: %w", err)
	}
	if l.m.log != nil {
		l.m.log.Info("replica connected to master", zap.String("master", addr))
	}

	sink := discardConn{addr: addr}
	client := command.NewClient(-1, sink)
	client.Authenticated = true

	for {
		select {
		case <-l.cancel:
			return nil
		default:
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		cmd, err := protocol.Parse(r, nil)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return fmt.Errorf("master stream: %w", err)
		}
		if len(cmd.Args) == 0 {
			continue
		}
		if l.m.engine != nil {
			l.m.engine.Dispatch(client, cmd)
		}
	}
}

func sendCommand(conn net.Conn, args ...string) error {
	var buf []byte
	buf = append(buf, '*')
	buf = append(buf, []byte(strconv.Itoa(len(args)))...)
	buf = append(buf, '\r', '\n')
	for _, a := range args {
		buf = append(buf, '$')
		buf = append(buf, []byte(strconv.Itoa(len(a)))...)
		buf = append(buf, '\r', '\n')
		buf = append(buf, a...)
		buf = append(buf, '\r', '\n')
	}
	_, err := conn.Write(buf)
	return err
}

func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		return nil, err
	}
	return line[:len(line)-2], nil
}

// readBulk reads a standard "$<n>\r\n<n bytes>\r\n" bulk reply, the
// framing cmdSync uses for the full-dump response.
func readBulk(r *bufio.Reader) ([]byte, error) {
	hdr, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(hdr) == 0 || hdr[0] != '$' {
		return nil, fmt.Errorf("expected bulk reply, got %q", hdr)
	}
	n, err := strconv.Atoi(string(hdr[1:]))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid bulk length %q", hdr)
	}
	buf := make([]byte, n+2)
	if _, err := ioReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func ioReadFull(r *bufio.Reader, buf []byte) (int, error) {
	read := 0
	for read < len(buf) {
		n, err := r.Read(buf[read:])
		read += n
		if err != nil {
			return read, err
		}
	}
	return read, nil
}

// discardConn adapts a live streaming connection to command.Conn for
// the synthetic client used to dispatch commands received from a
// master: replies are never sent back up that socket.
type discardConn struct{ addr string }

func (discardConn) Write(b []byte) error { return nil }
func (d discardConn) RemoteAddr() string { return d.addr }
