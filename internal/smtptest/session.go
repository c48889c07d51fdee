package smtptest

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
)

// Session states for the SMTP state machine.
const (
	stateConnected = iota
	stateGreeted
	stateAuthOK
	stateMailFrom
	stateRcptTo
)

// errAborted ends an AUTH exchange without a 535 reply.
var errAborted = errors.New("authentication aborted")

// idleTimeout closes sessions whose client stopped talking.
const idleTimeout = 10 * time.Second

// session serves one client connection.
type session struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	server *Server
	state  int

	tlsActive bool
	user      string

	mailFrom string
	rcptTo   []string
}

func newSession(conn net.Conn, server *Server) *session {
	return &session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		server: server,
		state:  stateConnected,
	}
}

// handle processes commands until QUIT, disconnect, or cancellation.
func (s *session) handle(ctx context.Context) {
	defer s.conn.Close()

	s.writeLine("220 %s ESMTP smtptest", s.server.config.Hostname)

	for {
		select {
		case <-ctx.Done():
			s.writeLine("421 Service shutting down")
			return
		default:
		}

		if err := s.conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			slog.Error("failed to set connection deadline", "error", err)
			return
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				slog.Debug("connection read error", "error", err)
			}
			return
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		cmd, arg := parseCommand(line)
		if s.handleCommand(cmd, arg) {
			return
		}
	}
}

// handleCommand processes a single command and reports whether the session should end.
func (s *session) handleCommand(cmd, arg string) bool {
	switch cmd {
	case "EHLO", "HELO":
		s.handleEHLO(cmd, arg)
	case "STARTTLS":
		s.handleSTARTTLS()
	case "AUTH":
		s.handleAUTH(arg)
	case "MAIL":
		s.handleMAIL(arg)
	case "RCPT":
		s.handleRCPT(arg)
	case "DATA":
		s.handleDATA()
	case "RSET":
		s.resetTransaction()
		s.writeLine("250 OK")
	case "NOOP":
		s.writeLine("250 OK")
	case "QUIT":
		s.writeLine("221 Bye")
		return true
	default:
		s.writeLine("500 Unrecognized command")
	}
	return false
}

func (s *session) handleEHLO(cmd, arg string) {
	if arg == "" {
		s.writeLine("501 Syntax: %s hostname", cmd)
		return
	}

	s.state = stateGreeted
	if cmd == "HELO" {
		s.writeLine("250 %s Hello %s", s.server.config.Hostname, arg)
		return
	}

	s.writeLine("250-%s Hello %s", s.server.config.Hostname, arg)
	if s.server.tlsConfig != nil && !s.tlsActive {
		s.writeLine("250-STARTTLS")
	}
	if s.server.creds.required() {
		s.writeLine("250-AUTH PLAIN LOGIN")
	}
	s.writeLine("250 OK")
}

func (s *session) handleSTARTTLS() {
	if s.server.tlsConfig == nil {
		s.writeLine("454 TLS not available")
		return
	}
	if s.tlsActive {
		s.writeLine("454 TLS already active")
		return
	}

	s.writeLine("220 Ready to start TLS")

	tlsConn := tls.Server(s.conn, s.server.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		slog.Debug("TLS handshake failed", "error", err)
		return
	}

	s.conn = tlsConn
	s.reader = bufio.NewReader(tlsConn)
	s.writer = bufio.NewWriter(tlsConn)
	s.tlsActive = true
	s.state = stateConnected
}

func (s *session) handleAUTH(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if !s.server.creds.required() {
		s.writeLine("503 AUTH not available")
		return
	}

	parts := strings.SplitN(arg, " ", 2)
	var (
		user string
		err  error
	)
	switch strings.ToUpper(parts[0]) {
	case "PLAIN":
		user, err = s.authPlain(parts)
	case "LOGIN":
		user, err = s.authLogin()
	default:
		s.writeLine("504 Unrecognized authentication type")
		return
	}
	if errors.Is(err, errAborted) {
		return
	}
	if err != nil {
		s.writeLine("535 Authentication failed")
		return
	}

	s.user = user
	s.state = stateAuthOK
	s.server.login(Login{User: user, TLS: s.tlsActive})
	s.writeLine("235 Authentication successful")
}

// authPlain checks inline or challenged AUTH PLAIN credentials.
func (s *session) authPlain(parts []string) (string, error) {
	encoded := ""
	if len(parts) > 1 && parts[1] != "" {
		encoded = parts[1]
	} else {
		s.writeLine("334")
		line, err := s.readResponse()
		if err != nil {
			return "", err
		}
		encoded = line
	}
	return s.server.creds.checkPlain(encoded)
}

func (s *session) authLogin() (string, error) {
	// base64 "Username:"
	s.writeLine("334 VXNlcm5hbWU6")
	encodedUser, err := s.readResponse()
	if err != nil {
		return "", err
	}

	// base64 "Password:"
	s.writeLine("334 UGFzc3dvcmQ6")
	encodedPass, err := s.readResponse()
	if err != nil {
		return "", err
	}
	return s.server.creds.checkLogin(encodedUser, encodedPass)
}

// readResponse reads one AUTH answer line. A "*" answer cancels the exchange.
func (s *session) readResponse() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		slog.Debug("failed to read AUTH response", "error", err)
		return "", errAborted
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "*" {
		s.writeLine("501 Authentication cancelled")
		return "", errAborted
	}
	return line, nil
}

func (s *session) handleMAIL(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if s.server.creds.required() && s.state < stateAuthOK {
		s.writeLine("530 Authentication required")
		return
	}

	if !strings.HasPrefix(strings.ToUpper(arg), "FROM:") {
		s.writeLine("501 Syntax: MAIL FROM:<address>")
		return
	}
	addr := extractAddress(arg[5:])
	if addr == "" {
		s.writeLine("501 Syntax: MAIL FROM:<address>")
		return
	}

	s.mailFrom = addr
	s.rcptTo = nil
	s.state = stateMailFrom
	s.writeLine("250 OK")
}

func (s *session) handleRCPT(arg string) {
	if s.state < stateMailFrom {
		s.writeLine("503 Send MAIL FROM first")
		return
	}

	if !strings.HasPrefix(strings.ToUpper(arg), "TO:") {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}
	addr := extractAddress(arg[3:])
	if addr == "" {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}

	if !s.server.recipient(addr) {
		s.writeLine("550 5.1.1 <%s>: Recipient address rejected", addr)
		return
	}

	s.rcptTo = append(s.rcptTo, addr)
	s.state = stateRcptTo
	s.writeLine("250 OK")
}

// handleDATA reads the dot-terminated body and records the envelope.
func (s *session) handleDATA() {
	if s.state < stateRcptTo {
		s.writeLine("503 Send RCPT TO first")
		return
	}

	s.writeLine("354 Start mail input; end with <CRLF>.<CRLF>")

	var data bytes.Buffer
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			slog.Debug("error reading DATA", "error", err)
			return
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			break
		}
		// Dot-stuffing: a leading ".." stands for a single dot.
		if strings.HasPrefix(trimmed, "..") {
			line = line[1:]
		}
		data.WriteString(line)
	}

	env := Envelope{
		From: s.mailFrom,
		To:   s.rcptTo,
		User: s.user,
		Data: data.Bytes(),
	}
	if err := s.server.deliver(env); err != nil {
		slog.Debug("failed to parse message", "error", err)
		s.writeLine("554 Failed to process message")
		s.resetTransaction()
		return
	}

	s.writeLine("250 OK message accepted")
	s.resetTransaction()
}

// resetTransaction clears the mail transaction but keeps greeting and login.
func (s *session) resetTransaction() {
	s.mailFrom = ""
	s.rcptTo = nil

	if s.server.creds.required() && s.state >= stateAuthOK {
		s.state = stateAuthOK
	} else if s.state >= stateGreeted {
		s.state = stateGreeted
	}
}

func (s *session) writeLine(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if _, err := s.writer.WriteString(line + "\r\n"); err != nil {
		slog.Debug("failed to write to client", "error", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		slog.Debug("failed to flush to client", "error", err)
	}
}

// parseCommand splits a command line into its upper-cased verb and argument.
func parseCommand(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToUpper(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = parts[1]
	}
	return cmd, arg
}

// extractAddress takes the address out of "<addr> PARAMS" or a bare address.
func extractAddress(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") {
		end := strings.Index(s, ">")
		if end < 0 {
			return ""
		}
		return s[1:end]
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
