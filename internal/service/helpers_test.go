package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/media"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/storage"
	"fad-monitoring-backend/internal/testutil"
	"fad-monitoring-backend/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	store    *storage.Disk
	signer   *utils.TokenSigner
	auth     *AuthService
	users    *UserService
	areas    *AreaService
	photos   *PhotoService
	info     *ProgramInfoService
	fads     *FadService
	vendors  *VendorService
	changes  *ChangeLogService
	sessions *repository.SessionRepository
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	store, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)

	log := quietLogger()
	userRepo := repository.NewUserRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	areaRepo := repository.NewAreaRepo(db)
	groupRepo := repository.NewGroupRepo(db)
	photoRepo := repository.NewPhotoRepo(db)
	sink := audit.NewDBSink(auditRepo)
	signer := utils.NewTokenSigner("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	processor := media.NewProcessor()
	uploadCfg := PhotoServiceConfig{PublicPrefix: "/uploads/TPS", MaxFileSize: 1 << 20, MaxFiles: 5}

	areas := NewAreaService(areaRepo, sink, log)
	return &testEnv{
		db:       db,
		store:    store,
		signer:   signer,
		auth:     NewAuthService(userRepo, sessionRepo, signer, sink, log),
		users:    NewUserService(userRepo, sessionRepo, auditRepo, sink, log),
		areas:    areas,
		photos:   NewPhotoService(areas, groupRepo, photoRepo, store, processor, uploadCfg, sink, log),
		info:     NewProgramInfoService(repository.NewProgramInfoRepo(db), store, processor, uploadCfg, sink, log),
		fads:     NewFadService(repository.NewFadRepo(db), repository.NewVendorRepo(db), sink, log),
		vendors:  NewVendorService(repository.NewVendorRepo(db), sink, log),
		changes:  NewChangeLogService(auditRepo),
		sessions: sessionRepo,
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadFile(name string, data []byte) UploadFile {
	return UploadFile{
		OriginalName: name,
		Size:         int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func storedNames(t *testing.T, store storage.Store) []string {
	t.Helper()
	files, err := store.List()
	require.NoError(t, err)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}
