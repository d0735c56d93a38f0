package notify

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSMTP speaks just enough SMTP for net/smtp: EHLO, AUTH PLAIN, MAIL,
// RCPT, DATA and QUIT.
type fakeSMTP struct {
	ln       net.Listener
	failAuth bool

	mu       sync.Mutex
	sessions int
	auth     string
	from     string
	rcpts    []string
	data     string
}

func startFakeSMTP(t *testing.T, failAuth bool) *fakeSMTP {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeSMTP{ln: ln, failAuth: failAuth}
	go f.serve()
	t.Cleanup(func() { ln.Close() })

	return f
}

func (f *fakeSMTP) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()

	f.mu.Lock()
	f.sessions++
	f.mu.Unlock()

	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			_ = tp.PrintfLine("250-fake")
			_ = tp.PrintfLine("250 AUTH PLAIN")
		case strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 fake")
		case strings.HasPrefix(cmd, "AUTH PLAIN"):
			if f.failAuth {
				_ = tp.PrintfLine("535 5.7.8 authentication failed")
				continue
			}
			f.mu.Lock()
			f.auth = strings.TrimSpace(line[len("AUTH PLAIN"):])
			f.mu.Unlock()
			_ = tp.PrintfLine("235 2.7.0 accepted")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			f.mu.Lock()
			f.from = strings.Trim(line[len("MAIL FROM:"):], "<> ")
			f.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			f.mu.Lock()
			f.rcpts = append(f.rcpts, strings.Trim(line[len("RCPT TO:"):], "<> "))
			f.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.data = string(data)
			f.mu.Unlock()
			_ = tp.PrintfLine("250 OK queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func TestSMTPSenderDelivers(t *testing.T) {
	server := startFakeSMTP(t, false)
	sender := &SMTPSender{Host: "127.0.0.1", Port: server.port(), Username: "team@example.com", Password: "secret"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := sender.Send(ctx, "team@example.com", []string{"asha@example.com"}, []byte("Subject: hi\r\n\r\nbody\r\n"))
	require.NoError(t, err)

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, 1, server.sessions)
	assert.NotEmpty(t, server.auth)
	assert.Equal(t, "team@example.com", server.from)
	assert.Equal(t, []string{"asha@example.com"}, server.rcpts)
	assert.Contains(t, server.data, "Subject: hi")
}

func TestSMTPSenderAuthFailure(t *testing.T) {
	server := startFakeSMTP(t, true)
	sender := &SMTPSender{Host: "127.0.0.1", Port: server.port(), Username: "team@example.com", Password: "wrong"}

	err := sender.Send(context.Background(), "team@example.com", []string{"asha@example.com"}, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP authentication failed")

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Empty(t, server.rcpts)
}

func TestSMTPSenderUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender := &SMTPSender{Host: "127.0.0.1", Port: port}
	err = sender.Send(context.Background(), "team@example.com", []string{"a@example.com"}, []byte("x"))
	assert.Error(t, err)

	assert.Error(t, (&SMTPSender{}).Send(context.Background(), "f@example.com", nil, nil))
}

func TestDispatcherOverSMTP(t *testing.T) {
	server := startFakeSMTP(t, false)
	sender := &SMTPSender{Host: "127.0.0.1", Port: server.port()}

	d := NewDispatcher(sender, Options{From: "team@example.com"}, zap.NewNop())
	d.Start(context.Background())
	require.True(t, d.Schedule(NewJob("asha@example.com", "Asha", KindReport, reportResult())))
	stopDispatcher(t, d)

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, 1, server.sessions)
	assert.Contains(t, server.data, ReportAttachmentName)
}

type fakeSES struct {
	input *ses.SendRawEmailInput
	err   error
}

func (f *fakeSES) SendRawEmail(_ context.Context, params *ses.SendRawEmailInput, _ ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendRawEmailOutput{}, nil
}

func TestSESSenderSendsRawMessage(t *testing.T) {
	api := &fakeSES{}
	sender := &SESSender{client: api}

	require.NoError(t, sender.Send(context.Background(), "team@example.com", []string{"asha@example.com"}, []byte("raw")))

	require.NotNil(t, api.input)
	assert.Equal(t, "team@example.com", *api.input.Source)
	assert.Equal(t, []string{"asha@example.com"}, api.input.Destinations)
	assert.Equal(t, []byte("raw"), api.input.RawMessage.Data)

	api.err = errors.New("throttled")
	assert.ErrorContains(t, sender.Send(context.Background(), "team@example.com", []string{"a@example.com"}, []byte("raw")), "throttled")
}
