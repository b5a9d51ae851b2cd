package enums

import "fmt"

// OwnerKind distinguishes carts persisted for signed-in users from guest carts.
type OwnerKind string

const (
	OwnerKindUser  OwnerKind = "user"
	OwnerKindGuest OwnerKind = "guest"
)

func (o OwnerKind) String() string {
	return string(o)
}

func (o OwnerKind) IsValid() bool {
	return o == OwnerKindUser || o == OwnerKindGuest
}

// ParseOwnerKind converts raw input into an OwnerKind.
func ParseOwnerKind(value string) (OwnerKind, error) {
	kind := OwnerKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid owner kind %q", value)
	}
	return kind, nil
}
