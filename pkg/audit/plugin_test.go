package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/narwhalmedia/gallery/pkg/logger"
	"github.com/narwhalmedia/gallery/pkg/transaction"
	"github.com/narwhalmedia/gallery/test/testutil"
)

type note struct {
	ID        string `gorm:"primaryKey"`
	Body      string
	CreatedBy *string
	UpdatedBy *string
	DeletedAt gorm.DeletedAt
	DeletedBy *string
}

type PluginSuite struct {
	suite.Suite
	db *gorm.DB
}

func (s *PluginSuite) SetupTest() {
	s.db = testutil.NewSQLiteDB(s.T())
	s.Require().NoError(s.db.AutoMigrate(&note{}))
}

func (s *PluginSuite) load(id string) note {
	var n note
	s.Require().NoError(s.db.Unscoped().First(&n, "id = ?", id).Error)
	return n
}

func (s *PluginSuite) TestCreateStruct() {
	n := note{ID: "n1", Body: "hello"}
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&n).Error)

	got := s.load("n1")
	s.Require().NotNil(got.CreatedBy)
	s.Equal("alice", *got.CreatedBy)
	s.Equal("alice", *got.UpdatedBy)
	s.Nil(got.DeletedBy)
}

func (s *PluginSuite) TestCreateKeepsCallerValue() {
	importer := "importer"
	n := note{ID: "n1", CreatedBy: &importer}
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&n).Error)

	got := s.load("n1")
	s.Equal("importer", *got.CreatedBy)
	s.Equal("alice", *got.UpdatedBy)
}

func (s *PluginSuite) TestCreateWithoutIdentity() {
	s.Require().NoError(s.db.WithContext(context.Background()).Create(&note{ID: "n1"}).Error)

	got := s.load("n1")
	s.Nil(got.CreatedBy)
	s.Nil(got.UpdatedBy)
}

func (s *PluginSuite) TestCreateSlice() {
	notes := []note{{ID: "a"}, {ID: "b"}}
	s.Require().NoError(s.db.WithContext(asActor("bob")).Create(&notes).Error)

	for _, id := range []string{"a", "b"} {
		s.Equal("bob", *s.load(id).CreatedBy)
	}
}

func (s *PluginSuite) TestCreateMap() {
	err := s.db.WithContext(asActor("carol")).Model(&note{}).Create(map[string]interface{}{"id": "m1", "body": "x"}).Error
	s.Require().NoError(err)

	s.Equal("carol", *s.load("m1").CreatedBy)
}

func (s *PluginSuite) TestUpdateMapStampsOnlyUpdatedBy() {
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&note{ID: "n1"}).Error)

	err := s.db.WithContext(asActor("bob")).Model(&note{ID: "n1"}).Updates(map[string]interface{}{"body": "edited"}).Error
	s.Require().NoError(err)

	got := s.load("n1")
	s.Equal("alice", *got.CreatedBy)
	s.Equal("bob", *got.UpdatedBy)
	s.Equal("edited", got.Body)
}

func (s *PluginSuite) TestUpdateMapKeepsCallerValue() {
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&note{ID: "n1"}).Error)

	err := s.db.WithContext(asActor("bob")).Model(&note{ID: "n1"}).
		Updates(map[string]interface{}{"body": "edited", "UpdatedBy": "migration"}).Error
	s.Require().NoError(err)

	s.Equal("migration", *s.load("n1").UpdatedBy)
}

func (s *PluginSuite) TestSaveStampsCurrentActor() {
	n := note{ID: "n1"}
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&n).Error)

	n.Body = "saved"
	s.Require().NoError(s.db.WithContext(asActor("bob")).Save(&n).Error)

	got := s.load("n1")
	s.Equal("alice", *got.CreatedBy)
	s.Equal("bob", *got.UpdatedBy)
}

func (s *PluginSuite) TestUpdatesStruct() {
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&note{ID: "n1"}).Error)

	err := s.db.WithContext(asActor("bob")).Model(&note{ID: "n1"}).Updates(note{Body: "patched"}).Error
	s.Require().NoError(err)

	got := s.load("n1")
	s.Equal("patched", got.Body)
	s.Equal("bob", *got.UpdatedBy)
}

func (s *PluginSuite) TestSoftDeleteStampsDeletedBy() {
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&note{ID: "n1"}).Error)

	err := s.db.WithContext(asActor("bob")).Model(&note{ID: "n1"}).
		Updates(map[string]interface{}{"deleted_at": time.Now().UTC()}).Error
	s.Require().NoError(err)

	got := s.load("n1")
	s.True(got.DeletedAt.Valid)
	s.Require().NotNil(got.DeletedBy)
	s.Equal("bob", *got.DeletedBy)

	var visible int64
	s.Require().NoError(s.db.Model(&note{}).Count(&visible).Error)
	s.Zero(visible)
}

func (s *PluginSuite) TestUpsertStampsUpdateBranch() {
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&note{ID: "n1", Body: "v1"}).Error)

	err := s.db.WithContext(asActor("bob")).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body"}),
	}).Create(&note{ID: "n1", Body: "v2"}).Error
	s.Require().NoError(err)

	got := s.load("n1")
	s.Equal("v2", got.Body)
	s.Equal("alice", *got.CreatedBy)
	s.Equal("bob", *got.UpdatedBy)
}

func (s *PluginSuite) TestUpsertUpdateAllKeepsCreator() {
	s.Require().NoError(s.db.WithContext(asActor("alice")).Create(&note{ID: "n1", Body: "v1"}).Error)

	err := s.db.WithContext(asActor("bob")).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&note{ID: "n1", Body: "v2"}).Error
	s.Require().NoError(err)

	got := s.load("n1")
	s.Equal("v2", got.Body)
	s.Equal("alice", *got.CreatedBy)
	s.Equal("bob", *got.UpdatedBy)
}

func (s *PluginSuite) TestUpsertUpdateAllInsertsNewRow() {
	err := s.db.WithContext(asActor("bob")).Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&note{ID: "n2", Body: "fresh"}).Error
	s.Require().NoError(err)

	got := s.load("n2")
	s.Equal("bob", *got.CreatedBy)
	s.Equal("bob", *got.UpdatedBy)
}

func (s *PluginSuite) TestStampsInsideTransaction() {
	m, err := transaction.NewManager(transaction.NewGormBackend(s.db), transaction.Config{}, logger.NewNoop(), nil)
	s.Require().NoError(err)

	err = m.Do(asActor("frank"), func(ctx context.Context) error {
		return transaction.DB(ctx, s.db).Create(&note{ID: "tx"}).Error
	})
	s.Require().NoError(err)

	s.Equal("frank", *s.load("tx").CreatedBy)
}

func TestPluginSuite(t *testing.T) {
	suite.Run(t, new(PluginSuite))
}
