// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/convm/contractingvm/contractingvm"
)

const (
	versionKey     = "version"
	httpPortKey    = "http-port"
	dbDirKey       = "db-dir"
	logLevelKey    = "log-level"
	budgetKey      = "budget-default"
	stepLimitKey   = "step-limit"
	moduleCacheKey = "module-cache-size"
)

type params struct {
	printVersion bool
	httpPort     uint
	dbDir        string
	logLevel     string
	config       contractingvm.Config
}

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(contractingvm.Name, flag.ContinueOnError)

	defaults := contractingvm.DefaultConfig()

	fs.Bool(versionKey, false, "If true, prints version and quits")
	fs.Uint(httpPortKey, 9750, "Port the JSON-RPC server listens on")
	fs.String(dbDirKey, "", "Directory for the state database; empty keeps state in memory")
	fs.String(logLevelKey, "info", "Log level: debug, info, warn, error or crit")
	fs.Uint64(budgetKey, defaults.DefaultBudget, "Stamp budget used by transactions that do not set their own")
	fs.Uint64(stepLimitKey, defaults.StepLimit, "Interpreter step ceiling per transaction")
	fs.Int(moduleCacheKey, defaults.ModuleCacheSize, "Number of parsed contract modules kept in memory")

	return fs
}

// getViper returns the viper environment for the node binary
func getViper() (*viper.Viper, error) {
	v := viper.New()

	fs := buildFlagSet()
	pflag.CommandLine.AddGoFlagSet(fs)
	pflag.Parse()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	return v, nil
}

func getParams() (*params, error) {
	v, err := getViper()
	if err != nil {
		return nil, err
	}

	return &params{
		printVersion: v.GetBool(versionKey),
		httpPort:     v.GetUint(httpPortKey),
		dbDir:        v.GetString(dbDirKey),
		logLevel:     v.GetString(logLevelKey),
		config: contractingvm.Config{
			DefaultBudget:   v.GetUint64(budgetKey),
			StepLimit:       v.GetUint64(stepLimitKey),
			ModuleCacheSize: v.GetInt(moduleCacheKey),
		},
	}, nil
}
