package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/certificate"
	"github.com/trezcool/masomo-learn/storage/database"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	signer, err := certificate.NewSigner(conf.SecretKey)
	errAndDie(err)

	// set up DB; the memory engine has nothing to migrate
	var db *sqlx.DB
	if !conf.Database.InMemory() {
		errAndDie(database.CreateIfNotExist(conf))
		db, err = database.Open(conf)
		errAndDie(err)
	}

	// start CLI
	cli := commandLine{
		signer: signer,
		out:    os.Stdout,
	}
	if db != nil {
		cli.db = db.DB
	}
	err = cli.run(os.Args)
	if db != nil {
		_ = db.Close()
	}
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
