package engine

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"searcher/logger"
	"searcher/utils"
)

// ErrAuthExpired means the block engine rejected our access token. Fatal to
// the current channel, the caller must re-authenticate.
var ErrAuthExpired = errors.New("block engine auth token expired or invalid")

type authChallengeRequest struct {
	Pubkey string `json:"pubkey"`
}

type authChallengeResponse struct {
	Challenge string `json:"challenge"`
}

type authTokenRequest struct {
	Pubkey    string `json:"pubkey"`
	Challenge string `json:"challenge"`
	Signature string `json:"signature"`
}

type authTokenResponse struct {
	AccessToken   string `json:"accessToken"`
	ExpiresAtUnix int64  `json:"expiresAtUnix"`
}

// authenticate runs the challenge/response handshake: the engine hands out a
// challenge, we sign it with the auth keypair and trade it for a bearer token.
func authenticate(baseURL string, keypair solana.PrivateKey) (string, error) {
	var challenge authChallengeResponse
	err := utils.PostUrlResponse(
		baseURL+pathAuthChallenge,
		authChallengeRequest{Pubkey: keypair.PublicKey().String()},
		nil, &challenge, logger.EngineLogger,
	)
	if err != nil {
		return "", fmt.Errorf("auth challenge failed: %w", classify(err))
	}

	sig, err := keypair.Sign([]byte(challenge.Challenge))
	if err != nil {
		return "", fmt.Errorf("failed to sign auth challenge: %w", err)
	}

	var token authTokenResponse
	err = utils.PostUrlResponse(
		baseURL+pathAuthToken,
		authTokenRequest{
			Pubkey:    keypair.PublicKey().String(),
			Challenge: challenge.Challenge,
			Signature: sig.String(),
		},
		nil, &token, logger.EngineLogger,
	)
	if err != nil {
		return "", fmt.Errorf("auth token exchange failed: %w", classify(err))
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("auth token exchange returned empty token: %w", ErrAuthExpired)
	}
	return token.AccessToken, nil
}

// classify maps 401/403 responses onto ErrAuthExpired so callers can
// distinguish credential failures from transport failures.
func classify(err error) error {
	var httpErr *utils.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %s", ErrAuthExpired, httpErr.Body)
		}
	}
	return err
}
