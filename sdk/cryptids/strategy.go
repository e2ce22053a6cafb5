package cryptids

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Strategy names a primary key generator.
type Strategy string

const (
	StrategyCUID Strategy = "cuid"
	StrategyUUID Strategy = "uuid"
	StrategyULID Strategy = "ulid"
)

// Generator returns the ID function for s. The empty strategy is cuid.
func Generator(s Strategy) (func() (string, error), error) {
	switch Strategy(strings.ToLower(string(s))) {
	case "", StrategyCUID:
		return GenerateCUID, nil
	case StrategyUUID:
		return GenerateUUID, nil
	case StrategyULID:
		return GenerateULID, nil
	}
	return nil, fmt.Errorf("unknown id strategy %q", s)
}

const cuidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var cuidCounter atomic.Uint32

// GenerateCUID returns a collision-resistant id: "c", the millisecond
// timestamp and a counter in base 36, then random characters. IDs from one
// process sort by creation time within a millisecond's resolution.
func GenerateCUID() (string, error) {
	random, err := generateID(cuidAlphabet, 12)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteByte('c')
	b.WriteString(pad(strconv.FormatInt(time.Now().UnixMilli(), 36), 8))
	b.WriteString(pad(strconv.FormatUint(uint64(cuidCounter.Add(1)%(36*36*36*36)), 36), 4))
	b.WriteString(random)
	return b.String(), nil
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[len(s)-n:]
	}
	return strings.Repeat("0", n-len(s)) + s
}

// GenerateUUID returns a random (version 4) UUID.
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GenerateULID returns a monotonic ULID.
func GenerateULID() (string, error) {
	return ulid.Make().String(), nil
}
