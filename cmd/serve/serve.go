package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yatube/common"
	"yatube/database"
	"yatube/server"
)

const portFlag = "port"

var serveFlags = map[string]cobraflags.Flag{
	portFlag: &cobraflags.StringFlag{
		Name:  portFlag,
		Value: "",
		Usage: "Port to listen on (overrides PORT)",
	},
}

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE:  serveCommand,
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	app, err := common.Open()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := database.RunMigrations(app.DB, app.Logger); err != nil {
		return err
	}

	router, err := server.New(app.Config, app.DB, app.Logger)
	if err != nil {
		return err
	}

	port := app.Config.Port
	if p := serveFlags[portFlag].GetString(); p != "" {
		port = p
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("starting server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down", zap.Duration("timeout", app.Config.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
