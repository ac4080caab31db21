package local

import (
	"crypto/rand"

	"github.com/iov-one/docseal/errors"
)

// share is a point of the secret sharing polynomial. X is never zero.
type share struct {
	X byte
	Y []byte
}

// split divides the secret into n shares, any k of which recover it. Each
// byte of the secret is the constant term of its own random polynomial of
// degree k-1 over GF(2^8).
func split(secret []byte, n, k int) ([]share, error) {
	if k < 1 || n < k || n > 255 {
		return nil, errors.Wrapf(errors.ErrInput, "cannot split into %d of %d shares", k, n)
	}
	if len(secret) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "secret")
	}

	coeffs := make([]byte, len(secret)*(k-1))
	if _, err := rand.Read(coeffs); err != nil {
		return nil, errors.Wrap(errors.ErrState, "no randomness")
	}

	shares := make([]share, n)
	for i := range shares {
		x := byte(i + 1)
		y := make([]byte, len(secret))
		for b, s := range secret {
			poly := coeffs[b*(k-1) : (b+1)*(k-1)]
			// Horner, highest degree first.
			var acc byte
			for d := len(poly) - 1; d >= 0; d-- {
				acc = gfMul(acc, x) ^ poly[d]
			}
			y[b] = gfMul(acc, x) ^ s
		}
		shares[i] = share{X: x, Y: y}
	}
	return shares, nil
}

// combine recovers the secret by Lagrange interpolation at zero.
func combine(shares []share) ([]byte, error) {
	if len(shares) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "no shares")
	}
	size := len(shares[0].Y)
	seen := make(map[byte]bool, len(shares))
	for _, s := range shares {
		if s.X == 0 || seen[s.X] {
			return nil, errors.Wrapf(errors.ErrInput, "invalid share index %d", s.X)
		}
		if len(s.Y) != size {
			return nil, errors.Wrap(errors.ErrInput, "share length mismatch")
		}
		seen[s.X] = true
	}

	secret := make([]byte, size)
	for i, si := range shares {
		num, den := byte(1), byte(1)
		for j, sj := range shares {
			if i == j {
				continue
			}
			num = gfMul(num, sj.X)
			den = gfMul(den, sj.X^si.X)
		}
		basis := gfMul(num, gfInv(den))
		for b := range secret {
			secret[b] ^= gfMul(si.Y[b], basis)
		}
	}
	return secret, nil
}

// gfMul multiplies in GF(2^8) with the AES polynomial.
func gfMul(a, b byte) byte {
	var p byte
	for b > 0 {
		if b&1 != 0 {
			p ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= 0x1b
		}
		b >>= 1
	}
	return p
}

// gfInv returns a^254, the multiplicative inverse of a non zero element.
func gfInv(a byte) byte {
	result, base := byte(1), a
	for e := 254; e > 0; e >>= 1 {
		if e&1 != 0 {
			result = gfMul(result, base)
		}
		base = gfMul(base, base)
	}
	return result
}
