package rpcpeer

import (
	"context"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ethdapps/dappsnode/chainspec"
	"github.com/ethdapps/dappsnode/light"
	"github.com/ethdapps/dappsnode/light/ondemand"
)

// Client is a light client whose chain view is the best header seen so far.
type Client struct {
	engine chainspec.Engine
	head   atomic.Pointer[types.Header]
}

var _ light.Client = (*Client)(nil)

func NewClient(engine chainspec.Engine) *Client {
	return &Client{engine: engine}
}

func (c *Client) Engine() chainspec.Engine {
	return c.engine
}

// BestBlockHeader returns a copy of the best header, or nil before the first
// one arrives.
func (c *Client) BestBlockHeader() *types.Header {
	head := c.head.Load()
	if head == nil {
		return nil
	}
	return types.CopyHeader(head)
}

func (c *Client) LatestEnvInfo() ondemand.EnvInfo {
	return ondemand.EnvInfoFromHeader(c.head.Load())
}

// SetHead records header as the best one unless a higher header is known.
// It reports whether the header was accepted.
func (c *Client) SetHead(header *types.Header) bool {
	if header == nil || header.Number == nil {
		return false
	}
	header = types.CopyHeader(header)
	for {
		current := c.head.Load()
		if current != nil && current.Number.Cmp(header.Number) > 0 {
			return false
		}
		if c.head.CompareAndSwap(current, header) {
			return true
		}
	}
}

// Follow applies every header from heads until the channel closes or ctx is
// cancelled.
func (c *Client) Follow(ctx context.Context, heads <-chan *types.Header) {
	for {
		select {
		case <-ctx.Done():
			return
		case header, ok := <-heads:
			if !ok {
				return
			}
			c.SetHead(header)
		}
	}
}
