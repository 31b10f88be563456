package ledger

import (
	"github.com/blocto/solana-go-sdk/common" // Solana public keys
	"github.com/mr-tron/base58"              // Base58 addresses
	"github.com/pkg/errors"                  // Error wrapping
)

const publicKeyLength = 32

// MetadataProgramID is the Metaplex token metadata program
const MetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

var metadataProgram = common.PublicKeyFromString(MetadataProgramID)

// ValidateAddress checks that s is base58 and decodes to a 32-byte key
func ValidateAddress(s string) error {
	if s == "" {
		return errors.New("address is empty")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return errors.Errorf("invalid base58 address %q", s)
	}
	if len(raw) != publicKeyLength {
		return errors.Errorf("address %q decodes to %d bytes", s, len(raw))
	}
	return nil
}

func parseKey(s string) (common.PublicKey, error) {
	if err := ValidateAddress(s); err != nil {
		return common.PublicKey{}, err
	}
	return common.PublicKeyFromString(s), nil
}

// AssociatedAddress derives the associated token account of owner for mint
func AssociatedAddress(mint, owner string) (string, error) {
	m, err := parseKey(mint)
	if err != nil {
		return "", errors.Wrap(err, "mint")
	}
	o, err := parseKey(owner)
	if err != nil {
		return "", errors.Wrap(err, "owner")
	}
	ata, _, err := common.FindAssociatedTokenAddress(o, m)
	if err != nil {
		return "", errors.Wrap(err, "derive associated token address")
	}
	return ata.ToBase58(), nil
}

// MetadataAddress derives the metadata account of mint:
// seeds ["metadata", program id, mint] under the metadata program
func MetadataAddress(mint string) (string, error) {
	m, err := parseKey(mint)
	if err != nil {
		return "", errors.Wrap(err, "mint")
	}
	pda, _, err := common.FindProgramAddress([][]byte{
		[]byte("metadata"),
		metadataProgram.Bytes(),
		m.Bytes(),
	}, metadataProgram)
	if err != nil {
		return "", errors.Wrap(err, "derive metadata address")
	}
	return pda.ToBase58(), nil
}
