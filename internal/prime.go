package internal

// Witness set that makes Miller-Rabin deterministic for all 64-bit inputs.
var mrWitnesses = [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// IsPrime reports whether n is prime. Deterministic for the full uint64 range.
func IsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for _, p := range mrWitnesses {
		if n == p {
			return true
		}
		if n%p == 0 {
			return false
		}
	}

	// n-1 = d * 2^r with d odd
	d := n - 1
	r := 0
	for d&1 == 0 {
		d >>= 1
		r++
	}

	for _, a := range mrWitnesses {
		x := PowMod(a, d, n)
		if x == 1 || x == n-1 {
			continue
		}
		composite := true
		for j := 0; j < r-1; j++ {
			x = MulMod(x, x, n)
			if x == n-1 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}

// NextPrime returns the smallest prime >= n.
func NextPrime(n uint64) uint64 {
	if n <= 2 {
		return 2
	}
	if n&1 == 0 {
		n++
	}
	for !IsPrime(n) {
		n += 2
	}
	return n
}
