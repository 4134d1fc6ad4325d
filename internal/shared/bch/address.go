package bch

import (
	"fmt"

	"github.com/gcash/bchd/chaincfg"
	"github.com/gcash/bchutil"
)

// NetworkParams resolve o nome da rede BCH; desconhecido cai em mainnet.
func NetworkParams(name string) *chaincfg.Params {
	switch name {
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params
	case "regtest":
		return &chaincfg.RegressionNetParams
	}
	return &chaincfg.MainNetParams
}

// ValidateAddress confere se addr é um endereço BCH (cashaddr, com ou sem
// prefixo, ou legado) da rede informada.
func ValidateAddress(addr string, net *chaincfg.Params) error {
	a, err := bchutil.DecodeAddress(addr, net)
	if err != nil {
		return fmt.Errorf("decode bch address: %w", err)
	}
	if !a.IsForNet(net) {
		return fmt.Errorf("address %s is not for %s", addr, net.Name)
	}
	return nil
}

// AddressFromSeed deriva um P2PKH cashaddr com prefixo a partir de
// Hash160(seed). Mesma seed e rede dão sempre o mesmo endereço.
func AddressFromSeed(seed []byte, net *chaincfg.Params) (string, error) {
	a, err := bchutil.NewAddressPubKeyHash(bchutil.Hash160(seed), net)
	if err != nil {
		return "", err
	}
	return net.CashAddressPrefix + ":" + a.EncodeAddress(), nil
}
