package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Algorithm = "argon2id"

	// DefaultMaxMemoryKB caps the memory a single hash or verification may request (1 GiB).
	DefaultMaxMemoryKB uint32 = 1024 * 1024
)

var (
	// ErrInvalidCostParams reports an unusable hashing configuration.
	ErrInvalidCostParams = errors.New("argon2: invalid cost parameters")
	// ErrMemoryLimit reports a memory cost above the configured ceiling.
	ErrMemoryLimit = errors.New("argon2: memory cost exceeds limit")

	errInvalidHashFormat = errors.New("argon2: invalid encoded hash format")
)

// CostParams are the tunable Argon2id parameters.
type CostParams struct {
	MemoryKB     uint32
	Iterations   uint32
	Parallelism  uint8
	OutputLength uint32
	SaltLength   uint32
}

// DefaultCostParams returns the pre-tuned configuration used when none is supplied.
func DefaultCostParams() CostParams {
	return CostParams{
		MemoryKB:     64 * 1024,
		Iterations:   3,
		Parallelism:  4,
		OutputLength: 32,
		SaltLength:   16,
	}
}

// Validate checks the parameters against the Argon2 minimums.
func (p CostParams) Validate() error {
	if p.Parallelism == 0 {
		return fmt.Errorf("%w: parallelism must be greater than zero", ErrInvalidCostParams)
	}
	if p.MemoryKB < 8*uint32(p.Parallelism) {
		return fmt.Errorf("%w: memory must be at least 8KB per lane", ErrInvalidCostParams)
	}
	if p.Iterations == 0 {
		return fmt.Errorf("%w: iterations must be greater than zero", ErrInvalidCostParams)
	}
	if p.OutputLength < 16 {
		return fmt.Errorf("%w: output length must be at least 16 bytes", ErrInvalidCostParams)
	}
	if p.SaltLength < 8 {
		return fmt.Errorf("%w: salt length must be at least 8 bytes", ErrInvalidCostParams)
	}
	return nil
}

// HashingResourceError signals that the hashing primitive could not obtain the
// resources it needs. It is fatal for the current request and must not be retried.
type HashingResourceError struct {
	Op  string
	Err error
}

func (e *HashingResourceError) Error() string {
	return fmt.Sprintf("argon2: %s: %v", e.Op, e.Err)
}

func (e *HashingResourceError) Unwrap() error {
	return e.Err
}

// Hasher hashes and verifies passwords with a fixed cost configuration.
// It holds no mutable state and is safe for concurrent use.
type Hasher struct {
	params      CostParams
	maxMemoryKB uint32
}

// NewHasher validates params and returns a hasher. maxMemoryKB of zero selects
// DefaultMaxMemoryKB.
func NewHasher(params CostParams, maxMemoryKB uint32) (*Hasher, error) {
	if maxMemoryKB == 0 {
		maxMemoryKB = DefaultMaxMemoryKB
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.MemoryKB > maxMemoryKB {
		return nil, fmt.Errorf("%w: %d KB > %d KB", ErrMemoryLimit, params.MemoryKB, maxMemoryKB)
	}
	return &Hasher{params: params, maxMemoryKB: maxMemoryKB}, nil
}

// Params returns the configured cost parameters.
func (h *Hasher) Params() CostParams {
	return h.params
}

// Hash returns the PHC-encoded Argon2id hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	return hashPassword(plaintext, h.params, h.maxMemoryKB)
}

// Verify reports whether plaintext matches the encoded hash.
func (h *Hasher) Verify(plaintext, encoded string) bool {
	return verifyPassword(plaintext, encoded, h.maxMemoryKB)
}

// HashPassword hashes a plaintext password with the given cost parameters.
// The result embeds algorithm, version, parameters, salt and digest:
//
//	$argon2id$v=19$m=<KB>,t=<iterations>,p=<parallelism>$<salt>$<digest>
func HashPassword(password string, params CostParams) (string, error) {
	return hashPassword(password, params, DefaultMaxMemoryKB)
}

// VerifyPassword compares a password with an encoded hash. Malformed or
// unsupported hashes verify as false.
func VerifyPassword(password, encoded string) bool {
	return verifyPassword(password, encoded, DefaultMaxMemoryKB)
}

func hashPassword(password string, params CostParams, maxMemoryKB uint32) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if params.MemoryKB > maxMemoryKB {
		return "", &HashingResourceError{Op: "allocate", Err: ErrMemoryLimit}
	}

	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", &HashingResourceError{Op: "generate salt", Err: err}
	}

	sum, err := deriveKey([]byte(password), salt, params)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Algorithm,
		argon2.Version,
		params.MemoryKB, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

func verifyPassword(password, encoded string, maxMemoryKB uint32) bool {
	if encoded == "" {
		return false
	}

	params, salt, expected, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	if params.MemoryKB > maxMemoryKB {
		return false
	}

	computed, err := deriveKey([]byte(password), salt, params)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// deriveKey runs the primitive, converting an allocation panic into a HashingResourceError.
func deriveKey(password, salt []byte, params CostParams) (key []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			key = nil
			err = &HashingResourceError{Op: "derive key", Err: fmt.Errorf("%v", r)}
		}
	}()
	return argon2.IDKey(password, salt, params.Iterations, params.MemoryKB, params.Parallelism, params.OutputLength), nil
}

func decodeHash(encoded string) (CostParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return CostParams{}, nil, nil, errInvalidHashFormat
	}

	if parts[1] != argon2Algorithm {
		return CostParams{}, nil, nil, fmt.Errorf("argon2: unsupported algorithm %q", parts[1])
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return CostParams{}, nil, nil, fmt.Errorf("argon2: unsupported version %q", parts[2])
	}

	params, err := parseParams(parts[3])
	if err != nil {
		return CostParams{}, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return CostParams{}, nil, nil, fmt.Errorf("argon2: decode salt: %w", err)
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return CostParams{}, nil, nil, fmt.Errorf("argon2: decode digest: %w", err)
	}

	params.SaltLength = uint32(len(salt))
	params.OutputLength = uint32(len(digest))
	if err := params.Validate(); err != nil {
		return CostParams{}, nil, nil, err
	}
	return params, salt, digest, nil
}

func parseParams(segment string) (CostParams, error) {
	entries := strings.Split(segment, ",")
	if len(entries) != 3 {
		return CostParams{}, errInvalidHashFormat
	}

	var params CostParams
	seen := make(map[string]bool, 3)
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || seen[key] {
			return CostParams{}, errInvalidHashFormat
		}
		seen[key] = true

		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return CostParams{}, fmt.Errorf("argon2: parse m: %w", err)
			}
			params.MemoryKB = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return CostParams{}, fmt.Errorf("argon2: parse t: %w", err)
			}
			params.Iterations = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return CostParams{}, fmt.Errorf("argon2: parse p: %w", err)
			}
			params.Parallelism = uint8(v)
		default:
			return CostParams{}, errInvalidHashFormat
		}
	}
	return params, nil
}
