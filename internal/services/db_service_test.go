package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/wallet-canister-backend/internal/config"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"github.com/stretchr/testify/suite"
)

type DBServiceTestSuite struct {
	suite.Suite
}

func (suite *DBServiceTestSuite) TestNewSqliteDBServiceInMemory() {
	db, err := services.NewSqliteDBService(":memory:")
	suite.Require().NoError(err)
	defer db.Close()

	suite.NotNil(db.GetDB())
	suite.NoError(db.Ping(context.Background()))
	suite.True(db.GetDB().Migrator().HasTable("wallets"))
	suite.True(db.GetDB().Migrator().HasTable("wallet_signers"))
	suite.True(db.GetDB().Migrator().HasTable("users"))
}

func (suite *DBServiceTestSuite) TestNewSqliteDBServiceCreatesDirectory() {
	path := filepath.Join(suite.T().TempDir(), "nested", "wallets.db")
	db, err := services.NewDBService(config.DatabaseConfig{SQLitePath: path})
	suite.Require().NoError(err)
	defer db.Close()
	suite.FileExists(path)
}

func (suite *DBServiceTestSuite) TestNewDBServiceSqliteURL() {
	path := filepath.Join(suite.T().TempDir(), "url.db")
	db, err := services.NewDBService(config.DatabaseConfig{URL: "sqlite://" + path})
	suite.Require().NoError(err)
	defer db.Close()
	suite.FileExists(path)
}

func (suite *DBServiceTestSuite) TestNewDBServiceUnsupportedScheme() {
	_, err := services.NewDBService(config.DatabaseConfig{URL: "mysql://localhost/wallets"})
	suite.Error(err)
}

func (suite *DBServiceTestSuite) TestPingAfterClose() {
	db, err := services.NewSqliteDBService(":memory:")
	suite.Require().NoError(err)
	suite.Require().NoError(db.Close())
	suite.Error(db.Ping(context.Background()))
}

func TestDBServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DBServiceTestSuite))
}
