package transform

import (
	"context"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/storage"
)

// TransferRequest describes one object-to-remote copy.
type TransferRequest struct {
	ObjectKey  string `json:"s3_key" binding:"required"`
	Host       string `json:"sftp_host" binding:"required"`
	Port       int    `json:"sftp_port"`
	User       string `json:"sftp_user" binding:"required"`
	RemotePath string `json:"sftp_path" binding:"required"`
}

// SFTPSender copies a stored object to a remote host over SFTP,
// authenticating with a private key loaded at construction.
type SFTPSender struct {
	store      storage.ObjectStorage
	audit      *audit.Logger
	privateKey []byte
}

func NewSFTPSender(store storage.ObjectStorage, auditLog *audit.Logger, privateKey []byte) *SFTPSender {
	return &SFTPSender{store: store, audit: auditLog, privateKey: privateKey}
}

// Send streams the object to req.RemotePath on the remote host and
// returns the remote file path written.
func (s *SFTPSender) Send(ctx context.Context, req TransferRequest) (string, error) {
	if err := s.validate(req); err != nil {
		s.audit.Error(ctx, domain.OpTransfer, map[string]any{"s3_key": req.ObjectKey, "sftp_host": req.Host}, err)
		return "", err
	}

	signer, err := ssh.ParsePrivateKey(s.privateKey)
	if err != nil {
		err = domain.Dependency("parse sftp private key", err)
		s.audit.Error(ctx, domain.OpTransfer, map[string]any{"s3_key": req.ObjectKey, "sftp_host": req.Host}, err)
		return "", err
	}

	port := req.Port
	if port == 0 {
		port = 22
	}

	sshConfig := &ssh.ClientConfig{
		User:            req.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := net.JoinHostPort(req.Host, strconv.Itoa(port))
	conn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		err = domain.Dependency("sftp dial", err)
		s.audit.Error(ctx, domain.OpTransfer, map[string]any{"s3_key": req.ObjectKey, "sftp_host": req.Host}, err)
		return "", err
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		err = domain.Dependency("sftp session", err)
		s.audit.Error(ctx, domain.OpTransfer, map[string]any{"s3_key": req.ObjectKey, "sftp_host": req.Host}, err)
		return "", err
	}
	defer client.Close()

	rc, err := s.store.GetObject(ctx, req.ObjectKey)
	if err != nil {
		err = domain.Dependency("download object", err)
		s.audit.Error(ctx, domain.OpTransfer, map[string]any{"s3_key": req.ObjectKey, "sftp_host": req.Host}, err)
		return "", err
	}
	defer rc.Close()

	remotePath := req.RemotePath
	if strings.HasSuffix(remotePath, "/") {
		remotePath = path.Join(remotePath, path.Base(req.ObjectKey))
	}

	remote, err := client.Create(remotePath)
	if err != nil {
		err = domain.Dependency("create remote file", err)
		s.audit.Error(ctx, domain.OpTransfer, map[string]any{"s3_key": req.ObjectKey, "remote_path": remotePath}, err)
		return "", err
	}
	defer remote.Close()

	written, err := io.Copy(remote, rc)
	if err != nil {
		err = domain.Dependency("write remote file", err)
		s.audit.Error(ctx, domain.OpTransfer, map[string]any{"s3_key": req.ObjectKey, "remote_path": remotePath}, err)
		return "", err
	}

	s.audit.Success(ctx, domain.OpTransfer, map[string]any{
		"s3_key":      req.ObjectKey,
		"sftp_host":   req.Host,
		"remote_path": remotePath,
		"bytes":       written,
	})
	return remotePath, nil
}

func (s *SFTPSender) validate(req TransferRequest) error {
	switch {
	case strings.TrimSpace(req.ObjectKey) == "":
		return domain.Validationf("s3_key is required")
	case strings.TrimSpace(req.Host) == "":
		return domain.Validationf("sftp_host is required")
	case strings.TrimSpace(req.User) == "":
		return domain.Validationf("sftp_user is required")
	case strings.TrimSpace(req.RemotePath) == "":
		return domain.Validationf("sftp_path is required")
	case len(s.privateKey) == 0:
		return domain.Dependency("sftp", fmt.Errorf("private key is not configured"))
	}
	return nil
}
