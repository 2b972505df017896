// Package probe issues MongoDB wire-protocol admin commands against
// freshly opened, short-lived connections: ping, replica-set formation,
// shard registration, user creation, and topology polling.
package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

// Mode selects how a connection addresses the cluster: direct to one
// host, or through replica-set discovery against a named set.
type Mode struct {
	ReplicaSetName string
}

// Direct addresses exactly the given host, bypassing topology discovery.
func Direct() Mode { return Mode{} }

// InReplicaSet addresses the cluster via replica-set discovery seeded at
// the given host.
func InReplicaSet(name string) Mode { return Mode{ReplicaSetName: name} }

func (m Mode) isDirect() bool { return m.ReplicaSetName == "" }

// Credentials authenticates a connection once a user exists.
type Credentials struct {
	Username string
	Password string
}

// Member describes one voting or non-voting node for replSetInitiate.
type Member struct {
	ID          int
	Host        string
	ArbiterOnly bool
}

// Prober opens admin connections and issues cluster-formation commands.
type Prober struct {
	tlsOpts *model.Options
}

// New creates a Prober that honors the TLS options on opts for every
// connection it opens.
func New(opts *model.Options) *Prober {
	return &Prober{tlsOpts: opts}
}

func (p *Prober) open(ctx context.Context, address string, mode Mode, creds *Credentials) (*mongo.Client, error) {
	uri := fmt.Sprintf("mongodb://%s", address)
	clientOpts := options.Client().ApplyURI(uri).SetConnectTimeout(5 * time.Second).SetServerSelectionTimeout(5 * time.Second)

	if mode.isDirect() {
		clientOpts.SetDirect(true)
	} else {
		clientOpts.SetReplicaSet(mode.ReplicaSetName)
	}

	if creds != nil {
		clientOpts.SetAuth(options.Credential{Username: creds.Username, Password: creds.Password})
	}

	if p.tlsOpts != nil && p.tlsOpts.TLSMode != "" && p.tlsOpts.TLSMode != "disabled" {
		tlsConfig, err := buildTLSConfig(p.tlsOpts)
		if err != nil {
			return nil, fmt.Errorf("build tls config: %w", err)
		}
		clientOpts.SetTLSConfig(tlsConfig)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, &model.ProbeError{Op: "connect", Address: address, Cause: err}
	}
	return client, nil
}

func buildTLSConfig(opts *model.Options) (*tls.Config, error) {
	cfg := &tls.Config{}

	if opts.TLSCertificateKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.TLSCertificateKeyFile, opts.TLSCertificateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load tls certificate key file: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if opts.TLSCAFile != "" {
		caPEM, err := os.ReadFile(opts.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read tls ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("parse tls ca file")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// Ping opens a connection in the given mode, sends {ping: 1} against the
// admin database, and closes the connection -- scoped acquisition on
// every exit path.
func (p *Prober) Ping(ctx context.Context, address string, mode Mode) error {
	return p.pingWithCreds(ctx, address, mode, nil)
}

// PingWithCredentials is Ping but authenticated, used to prove auth works
// after a user has been created.
func (p *Prober) PingWithCredentials(ctx context.Context, address string, mode Mode, creds Credentials) error {
	return p.pingWithCreds(ctx, address, mode, &creds)
}

func (p *Prober) pingWithCreds(ctx context.Context, address string, mode Mode, creds *Credentials) error {
	client, err := p.open(ctx, address, mode, creds)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return &model.ProbeError{Op: "ping", Address: address, Cause: err}
	}
	return nil
}

// ReplicaSetInitiate sends replSetInitiate to seedHost with the given
// member list, optionally tagged as a config-server replica set.
func (p *Prober) ReplicaSetInitiate(ctx context.Context, seedHost, rsName string, members []Member, configsvr bool) error {
	client, err := p.open(ctx, seedHost, Direct(), nil)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	memberDocs := make([]bson.M, 0, len(members))
	for _, m := range members {
		doc := bson.M{"_id": m.ID, "host": m.Host}
		if m.ArbiterOnly {
			doc["arbiterOnly"] = true
		}
		memberDocs = append(memberDocs, doc)
	}

	cfg := bson.M{
		"_id":     rsName,
		"members": memberDocs,
	}
	if configsvr {
		cfg["configsvr"] = true
	}

	cmd := bson.D{{Key: "replSetInitiate", Value: cfg}}
	if err := client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return &model.ProbeError{Op: "replSetInitiate", Address: seedHost, Cause: err}
	}
	return nil
}

// AddShard registers a shard (e.g. "shard01/localhost:30003") with the
// router at routerAddress.
func (p *Prober) AddShard(ctx context.Context, routerAddress, shard string) error {
	client, err := p.open(ctx, routerAddress, Direct(), nil)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	cmd := bson.D{{Key: "addShard", Value: shard}}
	if err := client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return &model.AddShardError{Shard: shard, Router: routerAddress, Cause: err}
	}
	return nil
}

// CreateUser creates a user with the given roles (default: root) on the
// admin database of the host addressed in mode.
func (p *Prober) CreateUser(ctx context.Context, address string, mode Mode, username, password string, roles []string) error {
	if len(roles) == 0 {
		roles = []string{"root"}
	}

	client, err := p.open(ctx, address, mode, nil)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	cmd := bson.D{
		{Key: "createUser", Value: username},
		{Key: "pwd", Value: password},
		{Key: "roles", Value: roles},
	}
	if err := client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return &model.ProbeError{Op: "createUser", Address: address, Cause: err}
	}
	return nil
}

// WaitUntilProvisioned polls host (in direct mode) until it reports
// itself primary or secondary, sleeping 1s between attempts, failing at
// deadline.
func (p *Prober) WaitUntilProvisioned(ctx context.Context, host string, deadline time.Time) error {
	window := time.Until(deadline)
	for {
		state, err := p.memberState(ctx, host)
		if err == nil && (state == "PRIMARY" || state == "SECONDARY") {
			return nil
		}

		if time.Now().After(deadline) {
			return &model.ProvisionTimeout{Host: host, Timeout: window.Round(time.Second).String()}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
}

func (p *Prober) memberState(ctx context.Context, host string) (string, error) {
	client, err := p.open(ctx, host, Direct(), nil)
	if err != nil {
		return "", err
	}
	defer client.Disconnect(ctx)

	var result struct {
		MyState int32 `bson:"myState"`
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "replSetGetStatus", Value: 1}}).Decode(&result); err != nil {
		return "", &model.ProbeError{Op: "replSetGetStatus", Address: host, Cause: err}
	}

	switch result.MyState {
	case 1:
		return "PRIMARY", nil
	case 2:
		return "SECONDARY", nil
	default:
		return "OTHER", nil
	}
}
