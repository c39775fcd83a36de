// Package driver implements the pull-based verification state machine: it
// decodes one request envelope, dispatches to a per-proof verifier, and
// surfaces any data the verifier still needs (sync-committee updates, a
// checkpoint bootstrap) as queued requests rather than fetching them
// itself. step never performs I/O; all network access is the caller's.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colibri-go/verifier/chainconfig"
	"github.com/colibri-go/verifier/committee"
	"github.com/colibri-go/verifier/lightclient"
	"github.com/colibri-go/verifier/log"
	"github.com/colibri-go/verifier/proofs"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

var logger = log.Default().Module("driver")

// State is one of the four verification-lifecycle states.
type State int

const (
	Init State = iota
	NeedsData
	Verifying
	Done
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case NeedsData:
		return "NeedsData"
	case Verifying:
		return "Verifying"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

var (
	ErrAlreadyInitialized = errors.New("driver: context already initialized")
	ErrNotInitialized     = errors.New("driver: step called before init")
	ErrUnknownRequestID   = errors.New("driver: response does not match a pending request")
)

// Context is one verify round-trip: it owns the decoded envelope, the
// outstanding data-request queue, and the final outcome. A Context is not
// safe for concurrent use; callers run one goroutine per verification.
type Context struct {
	state State

	chain uint64
	cfg   *chainconfig.Config
	store *committee.Store
	gvr   [32]byte

	method string
	args   []json.RawMessage

	envelope *request.Envelope

	pending   []request.DataRequest
	responses map[[32]byte]request.DataResponse
	missing   *verrors.CommitteeMissingError

	result []byte
	err    error
}

// NewContext builds a Context bound to one chain's committee store and
// fork schedule. cfg and store are shared process-wide resources; everything
// else a Context allocates is released when the Context is dropped.
func NewContext(chain uint64, cfg *chainconfig.Config, store *committee.Store, genesisValidatorsRoot [32]byte) *Context {
	return &Context{
		chain:     chain,
		cfg:       cfg,
		store:     store,
		gvr:       genesisValidatorsRoot,
		responses: make(map[[32]byte]request.DataResponse),
	}
}

// Init decodes requestBytes into an envelope and records the calling
// method and arguments, then runs the first Step. It may only be called
// once per Context.
func (c *Context) Init(ctx context.Context, requestBytes []byte, method string, args []json.RawMessage) error {
	if c.state != Init || c.envelope != nil {
		return ErrAlreadyInitialized
	}
	env, err := request.Decode(requestBytes)
	if err != nil {
		c.fail(err)
		return nil
	}
	c.envelope = env
	c.method = method
	c.args = args
	c.state = Verifying
	return c.Step(ctx)
}

// PendingRequests returns the data requests the caller must resolve
// before the next Step can make progress. The slice is owned by the
// Context; callers must not mutate it.
func (c *Context) PendingRequests() []request.DataRequest {
	return c.pending
}

// DeliverResponse supplies the result of one previously queued data
// request. It is a no-op if id does not match any pending request.
func (c *Context) DeliverResponse(resp request.DataResponse) {
	for _, p := range c.pending {
		if p.ID == resp.ReqID {
			c.responses[resp.ReqID] = resp
			return
		}
	}
}

// State reports the Context's current lifecycle state.
func (c *Context) State() State { return c.state }

// Result returns the verified data and a nil error on Done(success); a
// non-nil error on Done(error); and (nil, nil) if not yet Done.
func (c *Context) Result() ([]byte, error) {
	if c.state != Done {
		return nil, nil
	}
	return c.result, c.err
}

func (c *Context) fail(err error) {
	c.err = err
	c.state = Done
}

func (c *Context) succeed(data []byte) {
	c.result = data
	c.state = Done
}

// Step advances verification until either every declared data request is
// resolved or a new one is queued. It performs no I/O of its own; it only
// consumes responses already delivered via DeliverResponse.
func (c *Context) Step(ctx context.Context) error {
	if c.envelope == nil {
		return ErrNotInitialized
	}
	if c.state == Done {
		return nil
	}
	if err := ctx.Err(); err != nil {
		c.fail(err)
		return nil
	}

	if c.state == NeedsData {
		if !c.allResolved() {
			return nil
		}
		if applied, err := c.applyDeliveredUpdates(); err != nil {
			c.fail(err)
			return nil
		} else if applied {
			c.pending = nil
			c.responses = make(map[[32]byte]request.DataResponse)
			c.missing = nil
		}
		c.state = Verifying
	}

	data, err := proofs.Verify(proofs.Request{
		Proof:                 c.envelope.Proof,
		ClaimedData:           c.envelope.Data,
		Method:                c.method,
		Args:                  c.args,
		Chain:                 c.chain,
		Config:                c.cfg,
		Store:                 c.store,
		GenesisValidatorsRoot: c.gvr,
	})
	if err == nil {
		logger.Info("proof accepted", "method", c.method, "kind", c.envelope.Proof.Kind.String())
		verifyTotal.WithLabelValues("success").Inc()
		c.succeed(data)
		return nil
	}

	var missing *verrors.CommitteeMissingError
	if errors.As(err, &missing) {
		logger.Info("requesting sync-committee updates", "chain", c.chain,
			"first_period", missing.FirstMissingPeriod, "last_period", missing.LastMissingPeriod)
		pendingTotal.Inc()
		c.missing = missing
		c.pending = []request.DataRequest{
			request.NewDataRequest(c.chain, request.BeaconAPI, request.MethodGET,
				request.LightClientUpdatesURL(request.PeriodRange{First: missing.FirstMissingPeriod, Last: missing.LastMissingPeriod}),
				nil, request.JSON),
		}
		c.state = NeedsData
		return nil
	}

	logger.Warn("proof rejected", "method", c.method, "kind", c.envelope.Proof.Kind.String(), "err", err)
	verifyTotal.WithLabelValues("rejected").Inc()
	c.fail(err)
	return nil
}

func (c *Context) allResolved() bool {
	for _, p := range c.pending {
		if _, ok := c.responses[p.ID]; !ok {
			return false
		}
	}
	return len(c.pending) > 0
}

// applyDeliveredUpdates feeds the light-client updates the caller fetched
// in response to a missing-committee pending request into the lightclient
// handler. Updates carried in a sync proof of the original request are
// applied by proofs.Verify, not here.
func (c *Context) applyDeliveredUpdates() (bool, error) {
	handler := lightclient.NewHandler(c.store, c.cfg, c.chain, c.gvr)

	for _, p := range c.pending {
		resp, ok := c.responses[p.ID]
		if !ok {
			continue
		}
		if resp.Err != "" {
			return false, fmt.Errorf("driver: fetching light-client updates: %s", resp.Err)
		}
		var updates []lightclient.Update
		if err := json.Unmarshal(resp.Bytes, &updates); err != nil {
			return false, fmt.Errorf("%w: light-client updates response: %v", verrors.ErrBadFormat, err)
		}
		if _, err := lightclient.ProcessUpdates(handler, updates); err != nil {
			return false, err
		}
	}
	return true, nil
}
