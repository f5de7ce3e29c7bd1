package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/harrylevesque/qrgen/internal/crypto"
	"github.com/harrylevesque/qrgen/internal/utils"
)

func main() {
	keyFile := flag.String("out", crypto.MasterKeyFile, "Output file")
	force := flag.Bool("force", false, "Overwrite an existing key file")
	flag.Parse()

	if utils.FileExists(*keyFile) && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Refusing to overwrite.\n", *keyFile)
		os.Exit(1)
	}
	hexKey := hex.EncodeToString(crypto.MustRandom(32))
	if err := os.WriteFile(*keyFile, []byte(hexKey+"\n"), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *keyFile, err)
		os.Exit(1)
	}
	fmt.Printf("Master key written to %s\n", *keyFile)
	fmt.Printf("Export it instead with: export %s=<contents of %s>\n", crypto.MasterKeyEnv, *keyFile)
}
