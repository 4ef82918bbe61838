package smtp

import (
	"context"
	"errors"
	"io"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/shineum/mailsender-lite/internal/email"
	"github.com/shineum/mailsender-lite/internal/inspect"
	"github.com/shineum/mailsender-lite/internal/smtptest"
)

func testMessage() *email.Email {
	return &email.Email{
		From:     "robot@example.com",
		FromName: "Robot",
		ReplyTo:  &mail.Address{Address: "robot@example.com"},
		To:       []*mail.Address{{Address: "alice@example.com"}, {Address: "bob@example.com"}},
		Cc:       []*mail.Address{{Address: "carol@example.com"}},
		Subject:  "Status",
		Body:     "All systems nominal",
	}
}

func startServer(t *testing.T, cfg smtptest.Config) *smtptest.Server {
	t.Helper()
	srv, err := smtptest.Start(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestSend_AuthenticatedDelivery(t *testing.T) {
	t.Parallel()

	srv := startServer(t, smtptest.Config{Username: "robot", Password: "secret"})

	tr, err := New(Config{
		Host:      srv.Host(),
		Port:      srv.Port(),
		Username:  "robot",
		Password:  "secret",
		Auth:      true,
		LocalName: "mailer.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp", tr.Name())

	require.NoError(t, tr.Send(context.Background(), testMessage()))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	env := msgs[0]
	assert.Equal(t, "robot@example.com", env.From)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com", "carol@example.com"}, env.To)
	assert.Equal(t, "mailer.test", env.Helo)
	assert.False(t, env.TLS)

	parsed, err := inspect.Parse(env.Data)
	require.NoError(t, err)
	assert.Equal(t, "Robot", parsed.FromName)
	assert.Equal(t, "Status", parsed.Subject)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, parsed.To)
	assert.Equal(t, []string{"carol@example.com"}, parsed.Cc)
	assert.Equal(t, "All systems nominal", strings.TrimSpace(parsed.TextBody))
}

func TestSend_WrongPasswordFails(t *testing.T) {
	t.Parallel()

	srv := startServer(t, smtptest.Config{Username: "robot", Password: "secret"})

	tr, err := New(Config{Host: srv.Host(), Port: srv.Port(), Username: "robot", Password: "wrong", Auth: true})
	require.NoError(t, err)

	err = tr.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, email.ErrTransport)
	assert.Empty(t, srv.Messages())
}

func TestSend_STARTTLS(t *testing.T) {
	t.Parallel()

	tlsConfig, err := smtptest.SelfSignedTLS()
	require.NoError(t, err)
	srv := startServer(t, smtptest.Config{Username: "robot", Password: "secret", TLSConfig: tlsConfig})

	t.Run("trusted", func(t *testing.T) {
		tr, err := New(Config{
			Host: srv.Host(), Port: srv.Port(),
			Username: "robot", Password: "secret", Auth: true,
			InsecureSkipVerify: true,
		})
		require.NoError(t, err)
		require.NoError(t, tr.Send(context.Background(), testMessage()))

		msgs := srv.Messages()
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].TLS)
	})

	t.Run("untrusted certificate", func(t *testing.T) {
		tr, err := New(Config{
			Host: srv.Host(), Port: srv.Port(),
			Username: "robot", Password: "secret", Auth: true,
		})
		require.NoError(t, err)
		assert.ErrorIs(t, tr.Send(context.Background(), testMessage()), email.ErrTransport)
		assert.Len(t, srv.Messages(), 1, "no new message after failed handshake")
	})
}

func TestSend_ImplicitTLS(t *testing.T) {
	t.Parallel()

	tlsConfig, err := smtptest.SelfSignedTLS()
	require.NoError(t, err)
	srv := startServer(t, smtptest.Config{Username: "robot", Password: "secret", TLSConfig: tlsConfig, ImplicitTLS: true})

	tr, err := New(Config{
		Host: srv.Host(), Port: srv.Port(),
		Username: "robot", Password: "secret", Auth: true,
		SSL: true, InsecureSkipVerify: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "smtps", tr.Name())

	require.NoError(t, tr.Send(context.Background(), testMessage()))
	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].TLS)
}

func TestSend_NoAuth(t *testing.T) {
	t.Parallel()

	srv := startServer(t, smtptest.Config{})

	tr, err := New(Config{Host: srv.Host(), Port: srv.Port()})
	require.NoError(t, err)
	require.NoError(t, tr.Send(context.Background(), testMessage()))
	assert.Len(t, srv.Messages(), 1)
}

func TestSend_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv, err := smtptest.Start(smtptest.Config{})
	require.NoError(t, err)
	host, port := srv.Host(), srv.Port()
	require.NoError(t, srv.Close())

	tr, err := New(Config{Host: host, Port: port})
	require.NoError(t, err)
	assert.ErrorIs(t, tr.Send(context.Background(), testMessage()), email.ErrTransport)
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no user", Config{Host: "localhost", Port: 25, Password: "p", Auth: true}},
		{"no password", Config{Host: "localhost", Port: 25, Username: "u", Auth: true}},
		{"neither", Config{Host: "localhost", Port: 25, Auth: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, email.ErrMissingCredentials)
		})
	}
}

type fakeSender struct {
	sendErr error
	from    string
	to      []string
	closed  int
}

func (f *fakeSender) Send(from string, to []string, msg io.WriterTo) error {
	f.from = from
	f.to = to
	if f.sendErr != nil {
		return f.sendErr
	}
	_, err := msg.WriteTo(io.Discard)
	return err
}

func (f *fakeSender) Close() error {
	f.closed++
	return nil
}

func TestSend_WithDialFunc(t *testing.T) {
	t.Parallel()

	t.Run("delivers and closes", func(t *testing.T) {
		fake := &fakeSender{}
		tr, err := New(Config{Host: "smtp.example.com", Port: 25},
			WithDialFunc(func() (gomail.SendCloser, error) { return fake, nil }))
		require.NoError(t, err)

		require.NoError(t, tr.Send(context.Background(), testMessage()))
		assert.Equal(t, "robot@example.com", fake.from)
		assert.Len(t, fake.to, 3)
		assert.Equal(t, 1, fake.closed)
	})

	t.Run("send failure closes connection", func(t *testing.T) {
		fake := &fakeSender{sendErr: errors.New("452 mailbox full")}
		tr, err := New(Config{Host: "smtp.example.com", Port: 25},
			WithDialFunc(func() (gomail.SendCloser, error) { return fake, nil }))
		require.NoError(t, err)

		err = tr.Send(context.Background(), testMessage())
		assert.ErrorIs(t, err, email.ErrTransport)
		assert.Contains(t, err.Error(), "mailbox full")
		assert.Equal(t, 1, fake.closed)
	})

	t.Run("dial failure", func(t *testing.T) {
		tr, err := New(Config{Host: "smtp.example.com", Port: 25},
			WithDialFunc(func() (gomail.SendCloser, error) { return nil, errors.New("no route") }))
		require.NoError(t, err)
		assert.ErrorIs(t, tr.Send(context.Background(), testMessage()), email.ErrTransport)
	})

	t.Run("cancelled context skips dial", func(t *testing.T) {
		dialed := false
		tr, err := New(Config{Host: "smtp.example.com", Port: 25},
			WithDialFunc(func() (gomail.SendCloser, error) { dialed = true; return &fakeSender{}, nil }))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, tr.Send(ctx, testMessage()), email.ErrTransport)
		assert.False(t, dialed)
	})
}
