package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type HiveClient struct {
	rpcURL string
	signer OperationSigner
	client *http.Client
}

func NewHiveClient(rpcURL string, signer OperationSigner) *HiveClient {
	return &HiveClient{
		rpcURL: rpcURL,
		signer: signer,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *HiveClient) GetAccount(ctx context.Context, name string) (*Account, error) {
	result, err := c.call(ctx, "condenser_api.get_accounts", []interface{}{[]string{name}})
	if err != nil {
		return nil, err
	}
	accounts := []*Account{}
	if err := json.Unmarshal(result, &accounts); err != nil {
		return nil, fmt.Errorf("unmarshalling accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrAccountNotFound
	}
	return accounts[0], nil
}

// hiveChainID is the mainnet chain id mixed into every signing digest.
const hiveChainID = "beeab0de00000000000000000000000000000000000000000000000000000000"

const chainTimeFormat = "2006-01-02T15:04:05"

type globalProperties struct {
	HeadBlockNumber uint32 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
	Time            string `json:"time"`
}

func (c *HiveClient) BroadcastVote(ctx context.Context, vote Vote) error {
	if c.signer == nil {
		return fmt.Errorf("no operation signer configured")
	}

	result, err := c.call(ctx, "condenser_api.get_dynamic_global_properties", []interface{}{})
	if err != nil {
		return fmt.Errorf("reading chain state: %w", err)
	}
	props := globalProperties{}
	if err := json.Unmarshal(result, &props); err != nil {
		return fmt.Errorf("unmarshalling chain state: %w", err)
	}

	headBlockID, err := hex.DecodeString(props.HeadBlockID)
	if err != nil || len(headBlockID) < 8 {
		return fmt.Errorf("malformed head block id %q", props.HeadBlockID)
	}
	headTime, err := time.Parse(chainTimeFormat, props.Time)
	if err != nil {
		return fmt.Errorf("parsing chain time %q: %w", props.Time, err)
	}

	refBlockNum := uint16(props.HeadBlockNumber & 0xffff)
	refBlockPrefix := binary.LittleEndian.Uint32(headBlockID[4:8])
	chainID, err := hex.DecodeString(hiveChainID)
	if err != nil {
		return fmt.Errorf("decoding chain id: %w", err)
	}

	// The deterministic signature over a fixed payload either is or is not
	// canonical; bumping the expiration changes the digest, so retry with a
	// one-second shift until a canonical signature comes out.
	var expiration time.Time
	var signature []byte
	for attempt := 0; attempt < 100; attempt++ {
		expiration = headTime.Add(time.Minute + time.Duration(attempt)*time.Second)
		payload := serializeVoteTransaction(refBlockNum, refBlockPrefix, expiration, vote)
		digest := sha256.Sum256(append(append([]byte{}, chainID...), payload...))
		signature, err = c.signer.Sign(digest[:])
		if err != nil {
			return fmt.Errorf("signing vote: %w", err)
		}
		if sigIsCanonical(signature) {
			break
		}
		signature = nil
	}
	if signature == nil {
		return fmt.Errorf("no canonical signature after 100 attempts")
	}

	tx := map[string]interface{}{
		"ref_block_num":    refBlockNum,
		"ref_block_prefix": refBlockPrefix,
		"expiration":       expiration.UTC().Format(chainTimeFormat),
		"operations": []interface{}{
			[]interface{}{"vote", vote},
		},
		"extensions": []interface{}{},
		"signatures": []string{hex.EncodeToString(signature)},
	}
	if _, err := c.call(ctx, "condenser_api.broadcast_transaction_synchronous", []interface{}{tx}); err != nil {
		return fmt.Errorf("broadcasting vote: %w", err)
	}
	return nil
}

// serializeVoteTransaction renders the chain's binary signing form of a
// single-vote transaction: little-endian fixed-width ints, varint-prefixed
// strings and collection counts.
func serializeVoteTransaction(refBlockNum uint16, refBlockPrefix uint32, expiration time.Time, vote Vote) []byte {
	buf := []byte{}
	buf = binary.LittleEndian.AppendUint16(buf, refBlockNum)
	buf = binary.LittleEndian.AppendUint32(buf, refBlockPrefix)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(expiration.Unix()))
	buf = binary.AppendUvarint(buf, 1) // operation count
	buf = binary.AppendUvarint(buf, 0) // vote operation id
	buf = appendChainString(buf, vote.Voter)
	buf = appendChainString(buf, vote.Author)
	buf = appendChainString(buf, vote.Permlink)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(vote.Weight)))
	buf = binary.AppendUvarint(buf, 0) // extensions
	return buf
}

func appendChainString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func (c *HiveClient) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, fmt.Errorf("marshalling rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RPCError{Code: resp.StatusCode, Message: fmt.Sprintf("%s returned status %d", method, resp.StatusCode)}
	}

	rpcResp := rpcResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decoding rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}
