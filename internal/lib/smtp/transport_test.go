package smtp

import (
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/config"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestTransport_GetSMTPUser(t *testing.T) {
	tr := NewTransport(config.SMTP{SMTPUser: "noreply@gym.example"}, newNoopLogger())
	assert.Equal(t, "noreply@gym.example", tr.GetSMTPUser())
}

func TestTransport_ConnectWithoutHost(t *testing.T) {
	tr := NewTransport(config.SMTP{}, newNoopLogger())
	client, err := tr.Connect()
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestTransport_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	tr := NewTransport(config.SMTP{SMTPHost: "127.0.0.1", SMTPPort: strconv.Itoa(addr.Port)}, newNoopLogger())
	client, err := tr.Connect()
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "smtp.Connect")
}

func TestTransport_ServerWithoutStartTLS(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("220 localhost ESMTP\r\n"))
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			line := string(buf[:n])
			switch {
			case len(line) >= 4 && line[:4] == "EHLO":
				_, _ = conn.Write([]byte("250-localhost\r\n250 8BITMIME\r\n"))
			case len(line) >= 4 && line[:4] == "QUIT":
				_, _ = conn.Write([]byte("221 bye\r\n"))
				return
			default:
				_, _ = conn.Write([]byte("250 ok\r\n"))
			}
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	tr := NewTransport(config.SMTP{SMTPHost: "127.0.0.1", SMTPPort: strconv.Itoa(port)}, newNoopLogger())
	client, err := tr.Connect()
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "STARTTLS")
}
