package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"unicode"

	"github.com/creack/pty"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/gliderlabs/ssh"
	"github.com/rs/zerolog"
	gossh "golang.org/x/crypto/ssh"
)

const maxNicknameLen = 16

// SSHServer lets people play without installing the client: every session
// runs the terminal client in a pty, connected to the game server.
type SSHServer struct {
	cfg    Config
	log    zerolog.Logger
	server *ssh.Server
}

func NewSSHServer(cfg Config, log zerolog.Logger) (*SSHServer, error) {
	if cfg.SSHAddr == "" {
		return nil, fmt.Errorf("%w: no ssh address", ErrInvalidConfig)
	}
	s := &SSHServer{cfg: cfg, log: log.With().Str("component", "ssh").Logger()}
	s.server = &ssh.Server{
		Addr:        cfg.SSHAddr,
		IdleTimeout: cfg.IdleTimeout,
		Handler:     s.handle,
	}

	if cfg.HostKeyFile != "" {
		if err := s.server.SetOption(ssh.HostKeyFile(cfg.HostKeyFile)); err != nil {
			return nil, fmt.Errorf("load host key %s: %w", cfg.HostKeyFile, err)
		}
		return s, nil
	}
	signer, err := generateHostKey()
	if err != nil {
		return nil, err
	}
	s.server.AddHostKey(signer)
	s.log.Warn().Msg("no host key file given, using an ephemeral ed25519 key")
	return s, nil
}

func generateHostKey() (ssh.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := gossh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("host key signer: %w", err)
	}
	return signer, nil
}

// ListenAndServe serves ssh sessions until ctx is cancelled.
func (s *SSHServer) ListenAndServe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.server.Close()
	}()
	s.log.Info().Str("addr", s.cfg.SSHAddr).Msg("listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *SSHServer) handle(sess ssh.Session) {
	ptyReq, winCh, isPty := sess.Pty()
	if !isPty {
		io.WriteString(sess, "non-interactive terminals are not supported\n")
		sess.Exit(1)
		return
	}

	nick := Nickname(sess.User())
	log := s.log.With().Str("nick", nick).Str("remote", sess.RemoteAddr().String()).Logger()

	ctx, cancel := context.WithCancel(sess.Context())
	defer cancel()
	cmd := exec.CommandContext(ctx, s.cfg.ClientBinary, "-nick", nick, "-server", dialAddr(s.cfg.Addr))
	cmd.Env = clientEnv(os.Environ(), sess.Environ(), ptyReq.Term)

	f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(ptyReq.Window.Height), Cols: uint16(ptyReq.Window.Width)})
	if err != nil {
		log.Error().Err(err).Msg("start client")
		io.WriteString(sess, "failed to start the chess client\n")
		sess.Exit(1)
		return
	}
	defer f.Close()
	log.Info().Msg("session started")

	go func() {
		for win := range winCh {
			pty.Setsize(f, &pty.Winsize{Rows: uint16(win.Height), Cols: uint16(win.Width)})
		}
	}()
	go func() {
		io.Copy(f, sess)
	}()
	io.Copy(sess, f)

	cancel()
	cmd.Wait()
	log.Info().Msg("session ended")
}

// clientEnv is the environment of a spawned client: the server's own, then
// what the ssh client sent, then the pty's TERM. Later entries win.
func clientEnv(base, session []string, term string) []string {
	env := make([]string, 0, len(base)+len(session)+1)
	env = append(env, base...)
	env = append(env, session...)
	return append(env, fmt.Sprintf("TERM=%s", term))
}

// dialAddr turns a listen address such as ":12312" into one the client can
// dial.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// Nickname keeps letters, digits, dash and underscore of name, truncated.
// An empty result gets a random name.
func Nickname(name string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if sb.Len() >= maxNicknameLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return petname.Generate(2, "-")
	}
	return sb.String()
}
