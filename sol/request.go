package sol

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"

	"searcher/logger"
	"searcher/utils"
)

var SolanaRpcURL string

func GetSolanaRpcURL() string {
	if SolanaRpcURL != "" {
		return SolanaRpcURL
	}
	return viper.GetString("sol.rpc")
}

type SolanaRpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type SolanaRpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CallRpc issues one JSON-RPC call against the configured Solana endpoint and
// decodes the result field into out.
func CallRpc(method string, params []interface{}, out any) error {
	url := GetSolanaRpcURL()

	req := SolanaRpcRequest{
		Jsonrpc: "2.0",
		ID:      "1",
		Method:  method,
		Params:  params,
	}

	var resp SolanaRpcResponse
	err := utils.PostUrlResponseWithRetry(url, req, nil, &resp, utils.DefaultRetryTimes, logger.SolLogger)
	if err != nil {
		return fmt.Errorf("RPC %s failed: %w", method, err)
	}

	if resp.Error != nil {
		return fmt.Errorf("RPC %s returned error: %d %s", method, resp.Error.Code, resp.Error.Message)
	}

	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("RPC %s result decode failed: %w", method, err)
		}
	}
	return nil
}

func GetCurrentSlot() (uint64, error) {
	var slot uint64
	if err := CallRpc("getSlot", []interface{}{map[string]string{"commitment": "confirmed"}}, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// GetLeaderSchedule returns the current epoch's leader schedule as a mapping
// of validator identity to the slot indexes it leads.
func GetLeaderSchedule() (map[string][]uint64, error) {
	schedule := make(map[string][]uint64)
	if err := CallRpc("getLeaderSchedule", []interface{}{nil}, &schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}
