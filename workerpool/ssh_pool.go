package workerpool

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/zkceremony/coordinator/log"
)

// SSHPool is a Pool backed by isolated VMs reached over SSH, one instance
// per circuit, addressed by instanceId in "host:port" form. It keeps a
// single connection per instance open across calls and multiplexes
// commands over new sessions on that connection.
type SSHPool struct {
	config *ssh.ClientConfig

	mu    sync.Mutex
	conns map[string]*ssh.Client

	cmdMu   sync.Mutex
	cmdSeq  int
	pending map[string]*pendingCommand
}

type pendingCommand struct {
	done   chan struct{}
	output string
	err    error
}

// NewSSHPool builds an SSHPool authenticating with the private key at
// keyPath as user.
func NewSSHPool(user, keyPath string, connectTimeout time.Duration) (*SSHPool, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("workerpool: reading ssh key %s: %w", keyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("workerpool: parsing ssh key %s: %w", keyPath, err)
	}
	return &SSHPool{
		config: &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         connectTimeout,
		},
		conns:   map[string]*ssh.Client{},
		pending: map[string]*pendingCommand{},
	}, nil
}

func (p *SSHPool) client(instanceID string) (*ssh.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.conns[instanceID]; ok {
		return c, nil
	}
	c, err := ssh.Dial("tcp", instanceID, p.config)
	if err != nil {
		return nil, fmt.Errorf("workerpool: dial %s: %w", instanceID, err)
	}
	p.conns[instanceID] = c
	return c, nil
}

// Start implements Pool. Workers are always-on VMs in this deployment
// model, so Start only verifies reachability.
func (p *SSHPool) Start(ctx context.Context, instanceID string) error {
	if _, err := p.client(instanceID); err != nil {
		return err
	}
	log.Debugw("workerpool: started", "instance", instanceID)
	return nil
}

// Status implements Pool.
func (p *SSHPool) Status(ctx context.Context, instanceID string) (bool, error) {
	c, err := p.client(instanceID)
	if err != nil {
		return false, nil
	}
	sess, err := c.NewSession()
	if err != nil {
		p.dropConn(instanceID)
		return false, nil
	}
	defer sess.Close()
	return true, nil
}

// RunCommand implements Pool, executing commands sequentially in one shell
// session and recording the combined output under a fresh commandId.
func (p *SSHPool) RunCommand(ctx context.Context, instanceID string, commands []string) (string, error) {
	c, err := p.client(instanceID)
	if err != nil {
		return "", err
	}
	sess, err := c.NewSession()
	if err != nil {
		return "", fmt.Errorf("workerpool: new session on %s: %w", instanceID, err)
	}

	p.cmdMu.Lock()
	p.cmdSeq++
	commandID := fmt.Sprintf("%s-%d", instanceID, p.cmdSeq)
	pc := &pendingCommand{done: make(chan struct{})}
	p.pending[commandID] = pc
	p.cmdMu.Unlock()

	script := strings.Join(commands, " && ")
	go func() {
		defer sess.Close()
		out, runErr := sess.CombinedOutput(script)
		pc.output = string(out)
		pc.err = runErr
		close(pc.done)
	}()

	log.Debugw("workerpool: ran command", "instance", instanceID, "commandId", commandID)
	return commandID, nil
}

// FetchOutput implements Pool, blocking until the command completes or ctx
// is cancelled.
func (p *SSHPool) FetchOutput(ctx context.Context, instanceID, commandID string) (string, error) {
	p.cmdMu.Lock()
	pc, ok := p.pending[commandID]
	p.cmdMu.Unlock()
	if !ok {
		return "", fmt.Errorf("workerpool: unknown command %s", commandID)
	}

	select {
	case <-pc.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	p.cmdMu.Lock()
	delete(p.pending, commandID)
	p.cmdMu.Unlock()

	if pc.err != nil {
		if _, isExit := pc.err.(*ssh.ExitError); !isExit {
			return pc.output, fmt.Errorf("workerpool: command %s on %s: %w", commandID, instanceID, pc.err)
		}
	}
	return pc.output, nil
}

// Stop implements Pool. It closes the pooled connection; it is a no-op,
// not an error, if the instance has no open connection.
func (p *SSHPool) Stop(ctx context.Context, instanceID string) error {
	p.dropConn(instanceID)
	log.Debugw("workerpool: stopped", "instance", instanceID)
	return nil
}

func (p *SSHPool) dropConn(instanceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[instanceID]; ok {
		_ = c.Close()
		delete(p.conns, instanceID)
	}
}
