package main

import (
	"encoding/json"
	"fmt"
)

func (cli *commandLine) verifyCertificate(token string) error {
	cert, err := cli.signer.Verify(token)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(cert, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(out))
	return nil
}
