package service

import (
	"strings"

	"github.com/aussiebroadwan/mcpauth/internal/auth/domain"
	"github.com/aussiebroadwan/mcpauth/pkg/cryptox"
)

// RFC 7636 §4.1 bounds on the verifier, and therefore on S256 challenges.
const (
	minVerifierLength = 43
	maxVerifierLength = 128
)

// VerifyPKCE checks a code_verifier against the challenge stored with an
// authorization code. Unknown methods never verify.
func VerifyPKCE(verifier, challenge, method string) bool {
	switch method {
	case domain.CodeChallengeMethodPlain:
		return cryptox.EqualStrings(verifier, challenge)
	case domain.CodeChallengeMethodS256:
		return cryptox.EqualStrings(cryptox.S256Challenge(verifier), challenge)
	default:
		return false
	}
}

// NormalizePKCE validates the challenge parameters of an authorization
// request. An empty challenge means the client did not use PKCE and yields
// empty results. The method defaults to plain; method names are
// case-sensitive (RFC 7636 section 4.3).
func NormalizePKCE(challenge, method string) (string, string, error) {
	challenge = strings.TrimSpace(challenge)
	method = strings.TrimSpace(method)

	if challenge == "" {
		return "", "", nil
	}

	switch method {
	case "", domain.CodeChallengeMethodPlain:
		method = domain.CodeChallengeMethodPlain
	case domain.CodeChallengeMethodS256:
		if len(challenge) < minVerifierLength || len(challenge) > maxVerifierLength {
			return "", "", ErrInvalidRequest
		}
	default:
		return "", "", ErrInvalidRequest
	}

	return challenge, method, nil
}
