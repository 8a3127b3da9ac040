package model

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Best loads every artifact of kind in dir and returns the one with the
// lowest recorded error. Unreadable files are skipped. ErrNoArtifacts is
// returned when dir is missing or holds nothing of that kind.
func Best(dir, kind string, log *zap.Logger) (*Artifact, error) {
	if log == nil {
		log = zap.NewNop()
	}
	infos, err := ioutil.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNoArtifacts, "%s in %s", kind, dir)
	} else if err != nil {
		return nil, errors.Wrap(err, "list artifacts")
	}
	var found []*Artifact
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		a, err := Load(filepath.Join(dir, name))
		if err != nil {
			log.Warn("skipping artifact", zap.String("file", name), zap.Error(err))
			continue
		}
		if a.Kind == kind {
			found = append(found, a)
		}
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(ErrNoArtifacts, "%s in %s", kind, dir)
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].MAE < found[j].MAE })
	log.Debug("picked artifact",
		zap.String("id", found[0].ID),
		zap.Float64("mae", found[0].MAE),
		zap.Int("candidates", len(found)))
	return found[0], nil
}
