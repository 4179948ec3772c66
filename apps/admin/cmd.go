package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/masomo-learn/core/certificate"
)

var (
	errHelp = errors.New("help provided")
	errNoDB = errors.New("migrations need the postgres database engine")
)

type commandLine struct {
	db     *sql.DB
	signer *certificate.Signer
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run database migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version, fix)")
	fmt.Fprintln(cli.out, "  verifycert -token TOKEN - verify a certificate token and print the certificate")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	verifyCertCmd := flag.NewFlagSet("verifycert", flag.ContinueOnError)
	verifyCertCmd.SetOutput(cli.out)
	verifyCertToken := verifyCertCmd.String("token", "", "The certificate token to verify.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "verifycert":
		if err := verifyCertCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *verifyCertToken == "" {
			verifyCertCmd.Usage()
			return errHelp
		}
		return cli.verifyCertificate(*verifyCertToken)
	default:
		cli.printUsage()
		return errHelp
	}
}
