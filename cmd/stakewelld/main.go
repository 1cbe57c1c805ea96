// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakewell/stakewell/api"
	"github.com/stakewell/stakewell/co"
	"github.com/stakewell/stakewell/log"
	"github.com/stakewell/stakewell/metrics"
	"github.com/stakewell/stakewell/pool"
)

var (
	version   = "1.0.0"
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
		Name:      "Stakewell",
		Usage:     "Staking reward ledger service",
		Copyright: "2025 The Stakewell developers",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			memFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	genesisPath := ctx.String(genesisFlag.Name)
	if genesisPath == "" {
		fatal("no genesis file, set --" + genesisFlag.Name)
	}
	gene, err := loadGenesis(genesisPath)
	if err != nil {
		fatal(err)
	}
	registryOwner, err := gene.Owner()
	if err != nil {
		fatal(err)
	}

	db, err := openDB(ctx)
	if err != nil {
		fatal(err)
	}
	defer func() { logger.Info("closing ledger database..."); db.Close() }()

	engine, err := pool.NewEngine(db, registryOwner)
	if err != nil {
		fatal(err)
	}
	defer engine.Close()

	if err := gene.Apply(engine); err != nil {
		fatal(err)
	}

	var goes co.Goes

	handler, closeAPI := api.New(engine, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
	})
	apiSrv, apiURL, err := startHTTPServer(ctx.String(apiAddrFlag.Name), handler, &goes)
	if err != nil {
		fatal(err)
	}
	defer func() {
		logger.Info("stopping API server...")
		closeAPI()
		apiSrv.Shutdown(context.Background())
	}()
	logger.Info("API server started", "url", apiURL)

	if ctx.Bool(enableMetricsFlag.Name) {
		metricsSrv, metricsURL, err := startHTTPServer(ctx.String(metricsAddrFlag.Name), metrics.HTTPHandler().ServeHTTP, &goes)
		if err != nil {
			fatal(err)
		}
		defer func() {
			logger.Info("stopping metrics server...")
			metricsSrv.Shutdown(context.Background())
		}()
		logger.Info("metrics server started", "url", metricsURL)
	}

	printStartupMessage(ctx, engine, apiURL)

	<-handleExitSignal()

	goesDone := goes.Done()
	select {
	case <-goesDone:
	case <-time.After(10 * time.Second):
		logger.Warn("timed out waiting for servers to stop")
	}
	return nil
}

func startHTTPServer(addr string, handler http.HandlerFunc, goes *co.Goes) (*http.Server, string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}
	srv := &http.Server{Handler: handler}
	goes.Go(func() {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			logger.Error("http server stopped", "err", err)
		}
	})
	return srv, "http://" + listener.Addr().String() + "/", nil
}

func printStartupMessage(ctx *cli.Context, engine *pool.Engine, apiURL string) {
	fmt.Printf(`Starting %v
    Version     %v
    Data dir    %v
    Pools       %v
    API portal  %v
`,
		"Stakewell",
		fullVersion(),
		ctx.String(dataDirFlag.Name),
		len(engine.Pools()),
		apiURL)
}
