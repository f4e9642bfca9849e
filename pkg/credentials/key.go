package credentials

import (
	"crypto/rsa"
	"fmt"
	"math/big"
	"strings"
)

// KeyTuple is an RSA private key given as its integers n, e, d, p and q.
type KeyTuple struct {
	N, E, D, P, Q *big.Int
}

// ParseKeyTuple parses "n, e, d, p, q" written as decimal integers.
func ParseKeyTuple(s string) (KeyTuple, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 5 {
		return KeyTuple{}, fmt.Errorf("expected 5 comma separated integers, got %d", len(parts))
	}

	var ints [5]*big.Int
	for i, p := range parts {
		n, ok := new(big.Int).SetString(strings.TrimSpace(p), 10)
		if !ok || n.Sign() <= 0 {
			return KeyTuple{}, fmt.Errorf("element %d is not a positive integer", i)
		}
		ints[i] = n
	}
	return KeyTuple{N: ints[0], E: ints[1], D: ints[2], P: ints[3], Q: ints[4]}, nil
}

// String formats the tuple the way ParseKeyTuple reads it.
func (k KeyTuple) String() string {
	if k.N == nil || k.E == nil || k.D == nil || k.P == nil || k.Q == nil {
		return ""
	}
	return strings.Join([]string{k.N.String(), k.E.String(), k.D.String(), k.P.String(), k.Q.String()}, ", ")
}

// TupleFromKey extracts the tuple of a two-prime RSA key.
func TupleFromKey(key *rsa.PrivateKey) KeyTuple {
	t := KeyTuple{
		N: new(big.Int).Set(key.N),
		E: big.NewInt(int64(key.E)),
		D: new(big.Int).Set(key.D),
	}
	if len(key.Primes) == 2 {
		t.P = new(big.Int).Set(key.Primes[0])
		t.Q = new(big.Int).Set(key.Primes[1])
	}
	return t
}

// PrivateKey builds and validates the RSA key described by the tuple.
func (k KeyTuple) PrivateKey() (*rsa.PrivateKey, error) {
	if k.N == nil || k.E == nil || k.D == nil || k.P == nil || k.Q == nil {
		return nil, fmt.Errorf("incomplete key tuple")
	}
	if !k.E.IsInt64() || k.E.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("public exponent out of range")
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{
			N: new(big.Int).Set(k.N),
			E: int(k.E.Int64()),
		},
		D:      new(big.Int).Set(k.D),
		Primes: []*big.Int{new(big.Int).Set(k.P), new(big.Int).Set(k.Q)},
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	key.Precompute()
	return key, nil
}
