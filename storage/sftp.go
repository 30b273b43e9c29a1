package storage

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
)

// SFTP pushes artifacts to a remote box over SFTP. The box is expected
// to be fronted by an HTTP server at publicBaseURL; the minted link is
// publicBaseURL/key and the expiry is advisory, since plain file
// hosting cannot enforce a capability window. Pick a cloud backend
// when real signed URLs are required.
type SFTP struct {
	host          string
	port          string
	clientConfig  *ssh.ClientConfig
	remoteBaseDir string
	publicBaseURL string
}

// NewSFTP builds an SFTP backend. accessInfo keys: host, user,
// remoteBaseDir, publicBaseURL (required); port (default 22), password
// or privateKey (base64 or raw PEM).
func NewSFTP(accessInfo map[string]string) (*SFTP, error) {
	host := accessInfo["host"]
	user := accessInfo["user"]
	remoteBaseDir := accessInfo["remoteBaseDir"]
	publicBaseURL := accessInfo["publicBaseURL"]
	if host == "" || user == "" || remoteBaseDir == "" || publicBaseURL == "" {
		return nil, fmt.Errorf("missing required accessInfo keys: host, user, remoteBaseDir, publicBaseURL")
	}

	port := accessInfo["port"]
	if port == "" {
		port = "22"
	}

	var auths []ssh.AuthMethod
	if privateKey := accessInfo["privateKey"]; privateKey != "" {
		// try to decode as base64, fall back to raw
		keyBytes, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			keyBytes = []byte(privateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	} else if password := accessInfo["password"]; password != "" {
		auths = append(auths, ssh.Password(password))
	} else {
		return nil, fmt.Errorf("no auth method provided; set password or privateKey in accessInfo")
	}

	return &SFTP{
		host: host,
		port: port,
		clientConfig: &ssh.ClientConfig{
			User:            user,
			Auth:            auths,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         10 * time.Second,
		},
		remoteBaseDir: remoteBaseDir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Put copies the local file to remoteBaseDir/key, creating remote
// directories as needed. The connection is dialed per call; publishes
// are rare enough that pooling is not worth the state.
func (s *SFTP) Put(ctx context.Context, localPath, key string) error {
	addr := net.JoinHostPort(s.host, s.port)

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, s.clientConfig)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("create sftp client: %w", err)
	}
	defer sftpClient.Close()

	remotePath := path.Join(s.remoteBaseDir, key)
	if err := mkdirAllSFTP(sftpClient, path.Dir(remotePath)); err != nil {
		return fmt.Errorf("ensure remote dir %s: %w", path.Dir(remotePath), err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	f, err := sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("copy to remote file %s: %w", remotePath, err)
	}
	return nil
}

// SignedURL returns publicBaseURL/key. The expiry is advisory.
func (s *SFTP) SignedURL(_ context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	return s.publicBaseURL + "/" + key, time.Now().Add(ttl), nil
}

// mkdirAllSFTP mimics os.MkdirAll for an SFTP server by creating each
// segment of the path.
func mkdirAllSFTP(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	// sftp paths are posix-like, split on "/"
	parts := strings.Split(dir, "/")
	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}

	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if _, err := client.Stat(cur); err != nil {
			if os.IsNotExist(err) {
				if err := client.Mkdir(cur); err != nil {
					return fmt.Errorf("mkdir %s: %w", cur, err)
				}
			} else {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
		}
	}
	return nil
}
