package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"launchpad_go_backend/internal/services"

	"github.com/golang-jwt/jwt"
)

const (
	jwksCacheTTL = 10 * time.Minute
	// unknown kids can be sent by anyone, so refetches are rate limited
	jwksMinRefresh = time.Minute
)

var errUnknownKey = errors.New("unable to find appropriate key")

// TokenVerifier turns a bearer token into a verified identity.
type TokenVerifier interface {
	Verify(token string) (services.Identity, error)
}

// Auth0Verifier checks RS256 tokens against the tenant's published signing keys.
type Auth0Verifier struct {
	jwksURL  string
	issuer   string
	audience string
	client   *http.Client

	minRefresh time.Duration

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastAttempt time.Time
}

func NewAuth0Verifier(domain, audience string) *Auth0Verifier {
	domain = strings.TrimSuffix(strings.TrimPrefix(domain, "https://"), "/")
	return NewJWKSVerifier(
		fmt.Sprintf("https://%s/.well-known/jwks.json", domain),
		fmt.Sprintf("https://%s/", domain),
		audience,
	)
}

// NewJWKSVerifier is used directly when the key set is not served from an Auth0 tenant.
// An empty issuer or audience is not checked.
func NewJWKSVerifier(jwksURL, issuer, audience string) *Auth0Verifier {
	return &Auth0Verifier{
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
		client:   &http.Client{Timeout: 10 * time.Second},

		minRefresh: jwksMinRefresh,
	}
}

func (v *Auth0Verifier) Verify(tokenString string) (services.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		return v.key(kid)
	})
	if err != nil {
		return services.Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return services.Identity{}, errors.New("invalid token")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return services.Identity{}, errors.New("invalid issuer")
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return services.Identity{}, errors.New("invalid audience")
	}

	id := services.Identity{}
	id.Subject, _ = claims["sub"].(string)
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	if id.Name == "" {
		id.Name, _ = claims["nickname"].(string)
	}
	if id.Subject == "" {
		return services.Identity{}, errors.New("token has no subject")
	}
	return id, nil
}

// key returns the cached signing key, refreshing the set when it is stale or the kid is new.
// A stale key keeps being served while the key set cannot be fetched.
func (v *Auth0Verifier) key(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Since(v.fetchedAt) < jwksCacheTTL
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if !v.claimRefresh() {
		if ok {
			return key, nil
		}
		return nil, errUnknownKey
	}

	keys, err := v.fetchKeys()
	if err != nil {
		if ok {
			return key, nil
		}
		return nil, err
	}
	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()

	if key, ok := keys[kid]; ok {
		return key, nil
	}
	return nil, errUnknownKey
}

// claimRefresh reports whether the caller may fetch the key set now.
func (v *Auth0Verifier) claimRefresh() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.lastAttempt.IsZero() && time.Since(v.lastAttempt) < v.minRefresh {
		return false
	}
	v.lastAttempt = time.Now()
	return true
}

type jwks struct {
	Keys []struct {
		Kty string   `json:"kty"`
		Kid string   `json:"kid"`
		Use string   `json:"use"`
		N   string   `json:"n"`
		E   string   `json:"e"`
		X5c []string `json:"x5c"`
	} `json:"keys"`
}

func (v *Auth0Verifier) fetchKeys() (map[string]*rsa.PublicKey, error) {
	resp, err := v.client.Get(v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch jwks: status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		var (
			pub *rsa.PublicKey
			err error
		)
		if len(k.X5c) > 0 {
			cert := "-----BEGIN CERTIFICATE-----\n" + k.X5c[0] + "\n-----END CERTIFICATE-----"
			pub, err = jwt.ParseRSAPublicKeyFromPEM([]byte(cert))
		} else {
			pub, err = rsaKeyFromModulus(k.N, k.E)
		}
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func rsaKeyFromModulus(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
