// Package google verifies Google ID tokens against the issuer's published
// JWKS. Keys are cached for an hour and refreshed once on an unknown kid.
package google

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

const keyCacheTTL = time.Hour

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// idToken is a parsed but unverified compact JWT.
type idToken struct {
	header       map[string]any
	claims       map[string]any
	signature    []byte
	signingInput string
}

func (t idToken) kid() string {
	kid, _ := t.header["kid"].(string)
	return kid
}

type Verifier struct {
	issuer     string
	clientID   string
	httpClient *http.Client

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

func NewVerifier(issuer, clientID string) *Verifier {
	return &Verifier{
		issuer:     issuer,
		clientID:   clientID,
		keys:       make(map[string]*rsa.PublicKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifyIDToken checks the token signature, issuer, audience and expiry and
// returns the raw claims payload.
func (v *Verifier) VerifyIDToken(ctx context.Context, token string) (map[string]any, error) {
	parsed, err := parseIDToken(token)
	if err != nil {
		return nil, err
	}
	key, err := v.signingKey(ctx, parsed.kid())
	if err != nil {
		return nil, err
	}
	hashed := sha256.Sum256([]byte(parsed.signingInput))
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, hashed[:], parsed.signature); err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}
	if err := v.validateClaims(parsed.claims); err != nil {
		return nil, err
	}
	return parsed.claims, nil
}

func (v *Verifier) validateClaims(claims map[string]any) error {
	if iss, _ := claims["iss"].(string); iss != v.issuer {
		return errors.New("invalid issuer")
	}
	if !audienceMatches(claims["aud"], v.clientID) {
		return errors.New("invalid audience")
	}
	if exp, ok := claims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
		return errors.New("token expired")
	}
	return nil
}

// audienceMatches accepts the string and string-array forms the aud claim may
// take.
func audienceMatches(aud any, clientID string) bool {
	switch v := aud.(type) {
	case string:
		return v == clientID
	case []string:
		for _, a := range v {
			if a == clientID {
				return true
			}
		}
	case []any:
		for _, a := range v {
			if s, ok := a.(string); ok && s == clientID {
				return true
			}
		}
	}
	return false
}

// signingKey returns the cached key for kid, refreshing the set once when the
// kid is unknown (key rotation).
func (v *Verifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Since(v.fetched) < keyCacheTTL
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, errors.New("unknown kid")
}

func (v *Verifier) refresh(ctx context.Context) error {
	jwksURI, err := v.discoverJWKSURI(ctx)
	if err != nil {
		return err
	}
	var set jwks
	if err := v.getJSON(ctx, jwksURI, &set); err != nil {
		return err
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("no keys fetched")
	}
	v.mu.Lock()
	v.keys = keys
	v.fetched = time.Now()
	v.mu.Unlock()
	return nil
}

func (v *Verifier) discoverJWKSURI(ctx context.Context) (string, error) {
	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := v.getJSON(ctx, v.issuer+"/.well-known/openid-configuration", &doc); err != nil {
		return "", err
	}
	if doc.JWKSURI == "" {
		return "", errors.New("discovery document missing jwks_uri")
	}
	return doc.JWKSURI, nil
}

func (v *Verifier) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func rsaKeyFromJWK(j jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

func parseIDToken(token string) (idToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return idToken{}, errors.New("invalid token")
	}
	var out idToken
	for i, dst := range []*map[string]any{&out.header, &out.claims} {
		raw, err := base64.RawURLEncoding.DecodeString(parts[i])
		if err != nil {
			return idToken{}, err
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return idToken{}, err
		}
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return idToken{}, err
	}
	out.signature = sig
	out.signingInput = parts[0] + "." + parts[1]
	return out, nil
}
