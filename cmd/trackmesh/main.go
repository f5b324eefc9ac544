// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"math/big"
	"os"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/trackmesh/trackmesh/api"
	"github.com/trackmesh/trackmesh/ledger"
	"github.com/trackmesh/trackmesh/log"
	"github.com/trackmesh/trackmesh/lvldb"
	"github.com/trackmesh/trackmesh/metrics"
	"github.com/trackmesh/trackmesh/oracle"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "TrackMesh",
		Usage:     "Node of the TrackMesh proof ledger",
		Copyright: "2025 The TrackMesh developers",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			oracleURLFlag,
			verbosityFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "solo",
				Usage: "TrackMesh ledger for test & dev",
				Flags: []cli.Flag{
					genesisFlag,
					dataDirFlag,
					apiAddrFlag,
					apiCorsFlag,
					verbosityFlag,
					enableAPILogsFlag,
					enableMetricsFlag,
					metricsAddrFlag,
					persistFlag,
					soloStakeFlag,
					blockIntervalFlag,
				},
				Action: soloAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)
	startMetricsIfEnabled(ctx)

	genesis, err := loadGenesis(ctx)
	if err != nil {
		fatal(err)
	}
	instanceDir := makeInstanceDir(ctx)

	mainDB := openMainDB(instanceDir)
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	client := oracle.New(ctx.String(oracleURLFlag.Name))
	led, err := ledger.New(mainDB, genesis, client, client, client)
	if err != nil {
		fatal(err)
	}

	return serveAPI(ctx, led, client, instanceDir)
}

func soloAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)
	startMetricsIfEnabled(ctx)

	genesis, err := loadGenesis(ctx)
	if err != nil {
		fatal(err)
	}

	var mainDB *lvldb.LevelDB
	var instanceDir string
	if ctx.Bool(persistFlag.Name) {
		instanceDir = makeInstanceDir(ctx)
		mainDB = openMainDB(instanceDir)
	} else {
		instanceDir = "Memory"
		if mainDB, err = lvldb.NewMem(); err != nil {
			fatal(err)
		}
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	stake := oracle.NewSoloStake(new(big.Int).SetUint64(ctx.Uint64(soloStakeFlag.Name)))
	height := new(oracle.ManualHeight)
	led, err := ledger.New(mainDB, genesis, stake, oracle.SoloIdentity{}, new(oracle.MemBank))
	if err != nil {
		fatal(err)
	}

	// Simulated chain: advance the height on a fixed interval.
	interval := time.Duration(ctx.Uint64(blockIntervalFlag.Name)) * time.Second
	stopTicker := make(chan struct{})
	defer close(stopTicker)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger.Debug("new block", "height", height.Advance(1))
			case <-stopTicker:
				return
			}
		}
	}()

	return serveAPI(ctx, led, height, instanceDir)
}

func serveAPI(ctx *cli.Context, led *ledger.Ledger, height oracle.HeightSource, instanceDir string) error {
	handler := api.New(led, height, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})
	apiURL, srvCloser := startAPIServer(ctx, handler)
	defer func() { logger.Info("stopping API server..."); srvCloser() }()

	printStartupMessage(led, instanceDir, apiURL)

	exit := handleExitSignal()
	<-exit.Done()
	return nil
}

func startMetricsIfEnabled(ctx *cli.Context) {
	if !ctx.Bool(enableMetricsFlag.Name) {
		return
	}
	metrics.InitializePrometheusMetrics()
	url, _, err := startMetricsServer(ctx.String(metricsAddrFlag.Name))
	if err != nil {
		fatal(fmt.Sprintf("unable to start metrics server - %v", err))
	}
	logger.Info("metrics server started", "url", url)
}

func printStartupMessage(led *ledger.Ledger, instanceDir string, apiURL string) {
	cfg := led.Config()
	fmt.Printf(`Starting %v
    Version      [ %v ]
    Admin        [ %v ]
    Denom        [ %v ]
    Whitelist    [ %v ]
    Proof count  [ %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		"TrackMesh",
		fullVersion(),
		cfg.Admin,
		cfg.DepositDenom,
		cfg.UseWhitelist,
		cfg.ProofCount,
		instanceDir,
		apiURL)
}
