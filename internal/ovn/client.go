package ovn

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/ovn-org/libovsdb/client"
	"github.com/ovn-org/libovsdb/model"
	"github.com/projecteru2/core/log"
	slogzerolog "github.com/samber/slog-zerolog/v2"

	"github.com/paperandsoap/networking-ovn/configs"
	"github.com/paperandsoap/networking-ovn/internal/types"
	"github.com/paperandsoap/networking-ovn/pkg/terrors"
)

// Client is the libovsdb-backed Northbound implementation. It keeps a
// monitored replica of the tables it manages, which the transaction layer
// uses for lookups and ACL diffing.
type Client struct {
	cfg     *configs.OVNConfig
	dbModel model.ClientDBModel
	cli     client.Client
}

func normalizeAddr(addr string) string {
	if !strings.HasPrefix(addr, "tcp:") && !strings.HasPrefix(addr, "unix:") {
		if strings.HasPrefix(addr, "/") {
			addr = "unix:" + addr
		} else {
			addr = "tcp:" + addr
		}
	}
	return addr
}

func getCli(ctx context.Context, addrs []string, dbModelReq *model.ClientDBModel) (client.Client, error) {
	opts := make([]client.Option, 0, len(addrs)+2)
	for _, addr := range addrs {
		addr = normalizeAddr(addr)
		opts = append(opts, client.WithEndpoint(addr))
	}

	zlogger := log.GetGlobalLogger()
	slogHandler := slogzerolog.Option{Level: slog.LevelDebug, Logger: zlogger}.NewZerologHandler()
	ovsLogger := logr.FromSlogHandler(slogHandler)
	opts = append(opts, []client.Option{
		client.WithReconnect(15*time.Second, backoff.NewExponentialBackOff()),
		client.WithLogger(&ovsLogger),
	}...)
	cli, err := client.NewOVSDBClient(*dbModelReq, opts...)
	if err != nil {
		return nil, err
	}
	if err = cli.Connect(ctx); err != nil {
		return nil, err
	}
	_, err = cli.MonitorAll(ctx)
	return cli, err
}

// Dial connects to the northbound database and starts monitoring the
// managed tables.
func Dial(ctx context.Context, cfg *configs.OVNConfig) (*Client, error) {
	dbModel, err := model.NewClientDBModel("OVN_Northbound", map[string]model.Model{
		"Logical_Switch":      &LogicalSwitch{},
		"Logical_Switch_Port": &LogicalSwitchPort{},
		"ACL":                 &ACLRow{},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build northbound db model")
	}
	cli, err := getCli(ctx, cfg.NBAddrs, &dbModel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect northbound db")
	}
	return &Client{cfg: cfg, dbModel: dbModel, cli: cli}, nil
}

// Transaction .
func (c *Client) Transaction() Transaction {
	return &txn{c: c}
}

// Close .
func (c *Client) Close() {
	c.cli.Close()
}

func (c *Client) switchByName(ctx context.Context, name string) (*LogicalSwitch, error) {
	lsList := []LogicalSwitch{}
	if err := c.cli.List(ctx, &lsList); err != nil {
		return nil, errors.Wrap(err, "failed to list logical switches")
	}
	for i := range lsList {
		if lsList[i].Name == name {
			return &lsList[i], nil
		}
	}
	return nil, errors.Wrapf(terrors.ErrSwitchNotFound, "%s", name)
}

func (c *Client) portByName(ctx context.Context, name string) (*LogicalSwitchPort, error) {
	lspList := []LogicalSwitchPort{}
	if err := c.cli.List(ctx, &lspList); err != nil {
		return nil, errors.Wrap(err, "failed to list logical switch ports")
	}
	for i := range lspList {
		if lspList[i].Name == name {
			return &lspList[i], nil
		}
	}
	return nil, errors.Wrapf(terrors.ErrPortNotFound, "%s", name)
}

// aclRowsForPort returns the ACL rows of ls that are correlated to the
// given policy port through external ids.
func (c *Client) aclRowsForPort(ctx context.Context, ls *LogicalSwitch, portID string) ([]ACLRow, error) {
	rows := []ACLRow{}
	if err := c.cli.List(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "failed to list ACLs")
	}
	owned := make(map[string]struct{}, len(ls.ACLs))
	for _, u := range ls.ACLs {
		owned[u] = struct{}{}
	}
	var ans []ACLRow
	for _, row := range rows {
		if _, ok := owned[row.UUID]; !ok {
			continue
		}
		if row.ExternalIDs[types.LportExtIDKey] == portID {
			ans = append(ans, row)
		}
	}
	return ans, nil
}

// ListLogicalSwitches returns the monitored switch rows.
func (c *Client) ListLogicalSwitches(ctx context.Context) ([]LogicalSwitch, error) {
	lsList := []LogicalSwitch{}
	err := c.cli.List(ctx, &lsList)
	return lsList, errors.Wrap(err, "failed to list logical switches")
}

// ACLsForPort returns the ACL rows correlated to one policy port.
func (c *Client) ACLsForPort(ctx context.Context, switchName, portID string) ([]ACLRow, error) {
	ls, err := c.switchByName(ctx, switchName)
	if err != nil {
		return nil, err
	}
	return c.aclRowsForPort(ctx, ls, portID)
}
