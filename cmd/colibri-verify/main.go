// Command colibri-verify is the CLI front-end for the stateless light-client
// verifier: it decodes one request envelope, drives the verification state
// machine to completion (fetching any sync-committee updates it asks for
// over HTTP), and reports success or failure via its exit code.
//
// Usage:
//
//	colibri-verify -envelope proof.bin -method eth_getBalance -args '["0x...","latest"]' -beacon-api https://host
//
// Flags:
//
//	-envelope     path to the tagged request envelope (required)
//	-method       the JSON-RPC method the envelope's claimed data answers
//	-args         JSON array of the method's positional arguments
//	-chain        chain id the proof is anchored to (default: 1, mainnet)
//	-beacon-api   base URL used to resolve any light-client-update requests
//	-genesis-root hex-encoded genesis validators root
//	-loglevel     log verbosity: debug, info, warn, error (default: "info")
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/colibri-go/verifier/chainconfig"
	"github.com/colibri-go/verifier/committee"
	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/driver"
	"github.com/colibri-go/verifier/log"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/storage"
)

func main() {
	os.Exit(run())
}

// run is the actual entry point, returning the process exit code: 0 when
// the proof verifies and matches the claimed data, 1 on any failure
// (malformed input, bad proof, missing data the caller never supplied).
func run() int {
	var (
		envelopePath = flag.String("envelope", "", "path to the tagged request envelope")
		method       = flag.String("method", "", "JSON-RPC method the envelope's claimed data answers")
		argsJSON     = flag.String("args", "[]", "JSON array of the method's positional arguments")
		chainID      = flag.Uint64("chain", 1, "chain id the proof is anchored to")
		beaconAPI    = flag.String("beacon-api", "", "base URL for resolving light-client-update requests")
		genesisRoot  = flag.String("genesis-root", "", "hex-encoded genesis validators root")
		logLevel     = flag.String("loglevel", "info", "log verbosity (debug, info, warn, error)")
	)
	flag.Parse()

	log.SetDefault(log.New(parseLevel(*logLevel)))
	logger := log.Default().Module("cmd")

	if *envelopePath == "" || *method == "" {
		fmt.Fprintln(os.Stderr, "colibri-verify: -envelope and -method are required")
		return 1
	}

	envelopeBytes, err := os.ReadFile(*envelopePath)
	if err != nil {
		logger.Error("reading envelope", "err", err)
		return 1
	}

	var args []json.RawMessage
	if err := json.Unmarshal([]byte(*argsJSON), &args); err != nil {
		logger.Error("parsing -args", "err", err)
		return 1
	}

	gvr := types.HexToHash(*genesisRoot)

	store := committee.NewStore(storage.NewNullStorage(), committee.DefaultConfig())
	cfg := chainconfig.DefaultMainnet()

	ctx := driver.NewContext(*chainID, cfg, store, gvr)
	if err := ctx.Init(context.Background(), envelopeBytes, *method, args); err != nil {
		logger.Error("initializing verification", "err", err)
		return 1
	}

	for ctx.State() == driver.NeedsData {
		for _, dr := range ctx.PendingRequests() {
			resp := fetch(dr, *beaconAPI)
			ctx.DeliverResponse(resp)
		}
		if err := ctx.Step(context.Background()); err != nil {
			logger.Error("stepping verification", "err", err)
			return 1
		}
	}

	result, err := ctx.Result()
	if err != nil {
		logger.Warn("verification failed", "err", err)
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		return 1
	}

	fmt.Println(string(result))
	return 0
}

// fetch performs the one HTTP round trip a pending data request describes.
// The driver itself never does I/O; this is that I/O's sole caller.
func fetch(dr request.DataRequest, baseURL string) request.DataResponse {
	if baseURL == "" {
		return request.DataResponse{ReqID: dr.ID, Err: "no -beacon-api configured to resolve this request"}
	}
	resp, err := http.Get(strings.TrimRight(baseURL, "/") + dr.URL)
	if err != nil {
		return request.DataResponse{ReqID: dr.ID, Err: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return request.DataResponse{ReqID: dr.ID, Err: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return request.DataResponse{ReqID: dr.ID, Err: fmt.Sprintf("http %d: %s", resp.StatusCode, string(body))}
	}
	return request.DataResponse{ReqID: dr.ID, Bytes: body}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
