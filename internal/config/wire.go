package config

import (
	"github.com/dvloznov/statement-trends/internal/chatlog"
	"github.com/dvloznov/statement-trends/internal/logger"
	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/rs/zerolog"
)

// Logger builds the application logger from the log section.
func (c Config) Logger() (zerolog.Logger, error) {
	return logger.NewWithOptions(logger.Options{Level: c.Log.Level, Format: c.Log.Format})
}

// Loaders returns one statement loader per kind.
func (c Config) Loaders(log zerolog.Logger) (map[statement.Kind]*statement.Loader, error) {
	ranges, err := c.CodeRanges()
	if err != nil {
		return nil, err
	}

	pl := statement.NewLoader(c.Data.PLDir, statement.KindPL, logger.WithComponent(log, "pl_loader"))
	bs := statement.NewLoader(c.Data.BSDir, statement.KindBS, logger.WithComponent(log, "bs_loader"))
	bs.CodeRanges = ranges

	return map[statement.Kind]*statement.Loader{
		statement.KindPL: pl,
		statement.KindBS: bs,
	}, nil
}

// Registry returns cached statement loads for both kinds.
func (c Config) Registry(log zerolog.Logger) (*statement.Registry, error) {
	loaders, err := c.Loaders(log)
	if err != nil {
		return nil, err
	}
	sources := make(map[statement.Kind]statement.Source, len(loaders))
	for k, l := range loaders {
		sources[k] = l
	}
	return statement.NewRegistry(sources), nil
}

// Masters returns the account master store.
func (c Config) Masters(log zerolog.Logger) *master.Store {
	return master.NewStore(c.Data.ConfigDir, logger.WithComponent(log, "master"))
}

// Chatlogs returns the conversation log store.
func (c Config) Chatlogs() *chatlog.Store {
	return chatlog.NewStore(c.Chatlog.Root)
}
