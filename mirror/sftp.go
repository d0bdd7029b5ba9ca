package mirror

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"slidepack/logger"
)

// uploadToSFTP stores the file under settings["remoteDir"] on an SSH host.
// Required: host, user and one of password or privateKey (base64 or PEM).
// Optional: port (default 22) and hostKey, an authorized_keys line; without
// it the host key is not verified.
func uploadToSFTP(ctx context.Context, settings map[string]string, key string, r io.Reader) error {
	host := settings["host"]
	user := settings["user"]
	if host == "" || user == "" {
		return fmt.Errorf("missing settings: host, user")
	}
	port := settings["port"]
	if port == "" {
		port = "22"
	}

	auths, err := sshAuth(settings)
	if err != nil {
		return err
	}
	hostKeyCallback, err := sshHostKey(settings["hostKey"])
	if err != nil {
		return err
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}
	addr := net.JoinHostPort(host, port)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("create sftp client: %w", err)
	}
	defer client.Close()

	remotePath := path.Join(settings["remoteDir"], key)
	if err := client.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("ensure remote dir %s: %w", path.Dir(remotePath), err)
	}

	f, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: r}); err != nil {
		client.Remove(remotePath)
		return fmt.Errorf("copy to remote file %s: %w", remotePath, err)
	}

	logger.Infof("Uploaded '%s' to %s", remotePath, addr)
	return nil
}

func sshAuth(settings map[string]string) ([]ssh.AuthMethod, error) {
	if privateKey := settings["privateKey"]; privateKey != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			keyBytes = []byte(privateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if password := settings["password"]; password != "" {
		return []ssh.AuthMethod{ssh.Password(password)}, nil
	}
	return nil, fmt.Errorf("no auth method provided; set password or privateKey")
}

func sshHostKey(line string) (ssh.HostKeyCallback, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		logger.Warn("SFTP mirror has no hostKey, host key is not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if _, err := os.Stat(line); err == nil {
		data, err := os.ReadFile(line)
		if err != nil {
			return nil, err
		}
		line = string(data)
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("parse host key: %w", err)
	}
	return ssh.FixedHostKey(pub), nil
}
