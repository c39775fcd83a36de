package proofs

import (
	"encoding/json"
	"fmt"

	"github.com/colibri-go/verifier/lightclient"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

// verifySync forwards a bootstrap object and/or a batch of light-client
// updates to the sync-committee handler, rather than checking an
// execution-layer proof. It carries no SigningEnvelope of its own: each
// update is self-signed by its own sync aggregate.
func verifySync(r Request, p *request.SyncProof) ([]byte, error) {
	if p.Bootstrap == nil && len(p.Updates) == 0 {
		return nil, fmt.Errorf("%w: sync proof carries neither a bootstrap nor updates", verrors.ErrBadFormat)
	}

	handler := lightclient.NewHandler(r.Store, r.Config, r.Chain, r.GenesisValidatorsRoot)

	if p.Bootstrap != nil {
		if err := handler.ProcessBootstrap(*p.Bootstrap); err != nil {
			return nil, err
		}
	}

	applied, err := lightclient.ProcessUpdates(handler, p.Updates)
	if err != nil {
		return nil, err
	}

	if r.Method != "colibri_syncCommittee" {
		return nil, fmt.Errorf("%w: %s is not backed by a sync proof", verrors.ErrMethodNotProofable, r.Method)
	}
	return json.Marshal(syncResult{BootstrapApplied: p.Bootstrap != nil, UpdatesApplied: applied})
}

type syncResult struct {
	BootstrapApplied bool `json:"bootstrapApplied"`
	UpdatesApplied   int  `json:"updatesApplied"`
}
