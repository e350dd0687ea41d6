package cmd

import "github.com/izzymg/rotcore/internal/transport"

// AddressEnv overrides any address given on the command line.
const AddressEnv = "XI_ADDRESS"

// resolveAddress picks the endpoint: the environment wins even when set to an
// empty string, then the command line, then transport.DefaultAddress.
func resolveAddress(lookupEnv func(string) (string, bool), arg string) string {
	if v, ok := lookupEnv(AddressEnv); ok {
		return v
	}
	if arg != "" {
		return arg
	}
	return transport.DefaultAddress
}
