package main

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mtharp/reimburse/config"
	"github.com/mtharp/reimburse/model"
	"github.com/mtharp/reimburse/progress"
	"github.com/mtharp/reimburse/store"
	"github.com/mtharp/reimburse/trip"
)

// session is what every training or evaluation command needs: settings,
// examples, optional database and progress feed.
type session struct {
	cfg      *config.Config
	run      string
	examples []trip.Example
	db       *store.DB
	hub      *progress.Hub
	srv      *http.Server
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := setLogger(cfg.Log.Level, cfg.Log.Dev); err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, run: uuid.New().String()}
	if cfg.Cases.DBURL != "" {
		s.db, err = store.Open(cfg.Cases.DBURL)
		if err != nil {
			return nil, err
		}
		if err := s.db.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.examples, err = s.db.LoadExamples(ctx, cfg.Cases.Table)
		if err != nil {
			s.Close()
			return nil, err
		}
		logger.Info("loaded examples", zap.String("table", cfg.Cases.Table), zap.Int("count", len(s.examples)))
	} else {
		s.examples, err = trip.LoadExamples(cfg.Cases.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded examples", zap.String("path", cfg.Cases.Path), zap.Int("count", len(s.examples)))
	}
	if len(s.examples) == 0 {
		s.Close()
		return nil, errors.New("no examples")
	}
	if cfg.Progress.Listen != "" {
		s.hub = progress.NewHub(logger)
		mux := http.NewServeMux()
		mux.Handle("/progress", s.hub)
		s.srv = &http.Server{Addr: cfg.Progress.Listen, Handler: mux}
		go func() {
			if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("progress listener failed", zap.Error(err))
			}
		}()
		logger.Info("serving progress", zap.String("addr", "ws://"+cfg.Progress.Listen+"/progress"))
	}
	return s, nil
}

func (s *session) publish(ev progress.Event) {
	if s.hub == nil {
		return
	}
	ev.Run = s.run
	s.hub.Publish(ev)
}

// finish scores the trained model, writes its artifact and records the run.
func (s *session) finish(ctx context.Context, a *model.Artifact) error {
	// an interrupted run still records what it found
	ctx = context.WithoutCancel(ctx)
	a.ID = s.run
	m, err := a.Model()
	if err != nil {
		return err
	}
	st := trip.Evaluate(m, s.examples)
	a.MAE = st.MAE
	a.Cases = st.Count
	logStats(a.Kind, st)

	path := model.Path(s.cfg.Output.Dir, a.Kind)
	if err := model.Save(path, a); err != nil {
		return err
	}
	logger.Info("wrote artifact", zap.String("path", path), zap.String("id", a.ID))
	if s.db != nil {
		if err := s.db.SaveRun(ctx, a); err != nil {
			return err
		}
	}
	s.publish(progress.Event{Kind: a.Kind, MAE: st.MAE, RMSE: st.RMSE, Done: true})
	return nil
}

func (s *session) Close() {
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.srv.Shutdown(ctx)
		cancel()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func logStats(kind string, st trip.Stats) {
	logger.Info("evaluation",
		zap.String("kind", kind),
		zap.Int("cases", st.Count),
		zap.Float64("mae", st.MAE),
		zap.Float64("rmse", st.RMSE),
		zap.Int("exact", st.Exact),
		zap.Int("close", st.Close),
		zap.Float64("max_error", st.MaxError),
		zap.Any("worst", st.Worst))
}
