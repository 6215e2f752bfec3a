package eccmath

import (
	"errors"
	"fmt"
	"math/big"
)

// FieldElement is an element of the finite field Z/pZ, used by Curve and
// Point to do arithmetic modulo the secp256k1 prime.
type FieldElement struct {
	num   *big.Int
	prime *big.Int
}

// NewFieldElement reduces num modulo prime and returns the element.
func NewFieldElement(num, prime *big.Int) FieldElement {
	n := new(big.Int).Mod(num, prime)
	return FieldElement{num: n, prime: prime}
}

func (fe FieldElement) String() string {
	return fmt.Sprintf("%d (mod %d)", fe.num, fe.prime)
}

func (fe FieldElement) Equals(other FieldElement) bool {
	return fe.num.Cmp(other.num) == 0 && fe.prime.Cmp(other.prime) == 0
}

func (fe FieldElement) Add(other FieldElement) (FieldElement, error) {
	if fe.prime.Cmp(other.prime) != 0 {
		return FieldElement{}, errors.New("cannot add two numbers in different fields")
	}
	num := new(big.Int).Add(fe.num, other.num)
	num.Mod(num, fe.prime)
	return FieldElement{num: num, prime: fe.prime}, nil
}

func (fe FieldElement) Sub(other FieldElement) (FieldElement, error) {
	if fe.prime.Cmp(other.prime) != 0 {
		return FieldElement{}, errors.New("cannot subtract two numbers in different fields")
	}
	num := new(big.Int).Sub(fe.num, other.num)
	num.Mod(num, fe.prime)
	return FieldElement{num: num, prime: fe.prime}, nil
}

func (fe FieldElement) Mul(other FieldElement) (FieldElement, error) {
	if fe.prime.Cmp(other.prime) != 0 {
		return FieldElement{}, errors.New("cannot multiply two numbers in different fields")
	}
	num := new(big.Int).Mul(fe.num, other.num)
	num.Mod(num, fe.prime)
	return FieldElement{num: num, prime: fe.prime}, nil
}

func (fe FieldElement) Inv() FieldElement {
	inv := new(big.Int).ModInverse(fe.num, fe.prime)
	return FieldElement{num: inv, prime: fe.prime}
}

func (fe FieldElement) Div(other FieldElement) (FieldElement, error) {
	if fe.prime.Cmp(other.prime) != 0 {
		return FieldElement{}, errors.New("cannot divide two numbers in different fields")
	}
	return fe.Mul(other.Inv())
}

func (fe FieldElement) Pow(exponent int) FieldElement {
	num := new(big.Int).Exp(fe.num, big.NewInt(int64(exponent)), fe.prime)
	return FieldElement{num: num, prime: fe.prime}
}

func (fe FieldElement) IsZero() bool {
	return fe.num.Sign() == 0
}
