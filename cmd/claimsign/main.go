// Package main is a CLI for issuer owners: it generates secp256k1 keys and
// produces the signatures the registry stores as attestations.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"claimsreg/internal/catalog"
	"claimsreg/pkg/domain"
	"claimsreg/pkg/ethsig"
)

// keyEnv is read by sign when -key is not given.
const keyEnv = "CLAIMSIGN_KEY"

type keyOutput struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

type signOutput struct {
	Subject   string `json:"subject"`
	Claim     string `json:"claim"`
	ClaimType string `json:"claim_type"`
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

type recoverOutput struct {
	Subject string `json:"subject"`
	Claim   string `json:"claim"`
	Signer  string `json:"signer"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(out)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "keygen":
		return keygen(args[1:], out)
	case "sign":
		return sign(args[1:], out)
	case "recover":
		return recoverSigner(args[1:], out)
	case "claims":
		return listClaims(out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func keygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := ethsig.GenerateKey()
	if err != nil {
		return err
	}
	res := keyOutput{Address: key.Address().String(), PrivateKey: key.Hex()}
	if *asJSON {
		return writeJSON(out, res)
	}
	fmt.Fprintf(out, "address:     %s\nprivate key: %s\n", res.Address, res.PrivateKey)
	return nil
}

func sign(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	keyHex := fs.String("key", "", "Private key (0x hex). Defaults to $"+keyEnv)
	subjectHex := fs.String("subject", "", "Subject address (0x hex)")
	claimArg := fs.String("claim", "", "Claim name (AGE_OVER_18) or 0x identifier")
	asJSON := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyHex == "" {
		*keyHex = os.Getenv(keyEnv)
	}
	key, err := ethsig.KeyFromHex(*keyHex)
	if err != nil {
		return fmt.Errorf("invalid -key: %w", err)
	}
	subject, claimType, err := parseTarget(*subjectHex, *claimArg)
	if err != nil {
		return err
	}
	sig, err := key.SignClaim(subject, claimType)
	if err != nil {
		return err
	}

	res := signOutput{
		Subject:   subject.String(),
		Claim:     catalog.NameOf(claimType),
		ClaimType: claimType.String(),
		Signer:    key.Address().String(),
		Signature: ethsig.EncodeHex(sig),
	}
	if *asJSON {
		return writeJSON(out, res)
	}
	fmt.Fprintln(out, res.Signature)
	return nil
}

func recoverSigner(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	subjectHex := fs.String("subject", "", "Subject address (0x hex)")
	claimArg := fs.String("claim", "", "Claim name (AGE_OVER_18) or 0x identifier")
	sigHex := fs.String("signature", "", "Signature (0x hex, 65 bytes)")
	asJSON := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	subject, claimType, err := parseTarget(*subjectHex, *claimArg)
	if err != nil {
		return err
	}
	sig, err := ethsig.DecodeHex(*sigHex)
	if err != nil {
		return fmt.Errorf("invalid -signature: %w", err)
	}
	signer, err := ethsig.RecoverClaimSigner(subject, claimType, sig)
	if err != nil {
		return err
	}

	res := recoverOutput{Subject: subject.String(), Claim: catalog.NameOf(claimType), Signer: signer.String()}
	if *asJSON {
		return writeJSON(out, res)
	}
	fmt.Fprintln(out, res.Signer)
	return nil
}

func listClaims(out io.Writer) error {
	for _, e := range catalog.All() {
		fmt.Fprintf(out, "%-20s %s\n", e.Name, e.ClaimType)
	}
	return nil
}

func parseTarget(subjectHex, claimArg string) (domain.Address, domain.ClaimType, error) {
	subject, err := domain.ParseAddress(subjectHex)
	if err != nil || subject.IsNil() {
		return domain.Address{}, domain.ClaimType{}, fmt.Errorf("-subject must be a non-null 0x-prefixed 20-byte address")
	}
	claimType, err := catalog.Parse(claimArg)
	if err != nil || !catalog.IsValid(claimType) {
		return domain.Address{}, domain.ClaimType{}, fmt.Errorf("-claim must be one of: %s", strings.Join(claimNames(), ", "))
	}
	return subject, claimType, nil
}

func claimNames() []string {
	all := catalog.All()
	names := make([]string, 0, len(all))
	for _, e := range all {
		names = append(names, e.Name)
	}
	return names
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `claimsign - sign claim attestations for the claims registry

Usage:
  claimsign keygen  [-json]
  claimsign sign    -subject 0x.. -claim AGE_OVER_18 [-key 0x..] [-json]
  claimsign recover -subject 0x.. -claim AGE_OVER_18 -signature 0x.. [-json]
  claimsign claims

The sign key defaults to $`+keyEnv+`.
`)
}
