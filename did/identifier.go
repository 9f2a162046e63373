package did

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
)

// DefaultMethod is the DID method prefix of this deployment.
const DefaultMethod = "did:bnb"

// ToDID returns the identifier of address under method.
func ToDID(method, address string) string {
	return method + ":" + strings.ToLower(address)
}

// ParseDID returns the lowercase address of a DID under method.
func ParseDID(method, id string) (string, error) {
	address, ok := strings.CutPrefix(id, method+":")
	if !ok {
		return "", errs.New(errs.ErrInvalidInput, "DID %q must start with %s:", id, method)
	}
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return "", errs.New(errs.ErrInvalidAddress, "DID %q does not carry a valid address", id)
	}

	return strings.ToLower(address), nil
}

// NormalizeAddress returns the checksummed form of address.
//
// Mixed-case input must carry a valid EIP-55 checksum; all-lowercase and
// all-uppercase input is accepted as is.
func NormalizeAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return common.Address{}, errs.New(errs.ErrInvalidAddress, "%q", address)
	}

	addr := common.HexToAddress(address)
	body := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if "0x"+body != addr.Hex() {
			return common.Address{}, errs.New(errs.ErrInvalidAddress, "bad address checksum %q", address)
		}
	}

	return addr, nil
}

// AddressOf returns the checksummed address segment of a did:<method>:<address>
// identifier, whatever its method.
func AddressOf(id string) (common.Address, error) {
	i := strings.LastIndex(id, ":")
	if !strings.HasPrefix(id, "did:") || i < len("did:") {
		return common.Address{}, errs.New(errs.ErrInvalidInput, "%q is not a DID", id)
	}

	address := id[i+1:]
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return common.Address{}, errs.New(errs.ErrInvalidAddress, "DID %q does not carry a valid address", id)
	}

	return common.HexToAddress(address), nil
}
