package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/trezcool/masomo-learn/core/certificate"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	signer, err := certificate.NewSigner("secret")
	if err != nil {
		t.Fatalf("NewSigner() failed: %v", err)
	}
	var out bytes.Buffer
	return &commandLine{
		db:     new(sql.DB), // never used: migrations are mocked
		signer: signer,
		out:    &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	runMigrationsFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		cli.db = nil
		tt := cliTest{wantErr: errNoDB}
		tt.check(t, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_verifyCertificate(t *testing.T) {
	cli, out := setup(t)

	cert := cli.signer.Issue("U1", "C1", 88)
	token, err := cli.signer.Token(cert)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"verifycert"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"verifycert", "-lol"}, wantErr: errHelp},
		{name: "invalid token", args: []string{"verifycert", "-token", "lol"}, wantErr: certificate.ErrInvalidToken},
		{name: "valid token", args: []string{"verifycert", "-token", token}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				var got certificate.Certificate
				if err = json.Unmarshal(out.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal() failed: %v; output %s", err, out.String())
				}
				if got.ID != cert.ID || got.UserID != cert.UserID || !got.IssuedAt.Equal(cert.IssuedAt) {
					t.Errorf("verifycert printed %+v, want %+v", got, cert)
				}
			}
		})
	}
}
