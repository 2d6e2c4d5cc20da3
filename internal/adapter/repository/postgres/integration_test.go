//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/link-shortener/internal/config"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/internal/usecase"

	pg "github.com/vadimbarashkov/link-shortener/pkg/postgres"
)

const migrationsURL = "file://../../../../migrations"

func setupPostgres(t testing.TB) config.Postgres {
	t.Helper()

	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "link_shortener"

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	pgPort, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}
}

type LinkRepositoryIntegrationTestSuite struct {
	suite.Suite
	db       *sqlx.DB
	linkRepo *postgres.LinkRepository
}

func TestLinkRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	suite.Run(t, new(LinkRepositoryIntegrationTestSuite))
}

func (suite *LinkRepositoryIntegrationTestSuite) SetupSuite() {
	cfg := setupPostgres(suite.T())

	// The container accepts connections slightly before postgres is ready.
	var err error
	for i := 0; i < 10; i++ {
		if _, err = pg.RunMigrations(migrationsURL, cfg.DSN()); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	suite.Require().NoError(err)

	db, err := pg.New(context.Background(), cfg.DSN(), pg.WithMaxOpenConns(20))
	suite.Require().NoError(err)

	suite.db = db
	suite.linkRepo = postgres.NewLinkRepository(db)
}

func (suite *LinkRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *LinkRepositoryIntegrationTestSuite) TearDownSubTest() {
	_, err := suite.db.Exec("TRUNCATE TABLE links")
	suite.Require().NoError(err)
}

func (suite *LinkRepositoryIntegrationTestSuite) TestSave() {
	ctx := context.Background()

	suite.Run("success", func() {
		link, err := suite.linkRepo.Save(ctx, "abc123", "https://example.com")

		suite.NoError(err)
		suite.NotNil(link)
		suite.Equal("abc123", link.Code)
		suite.Equal("https://example.com", link.TargetURL)
		suite.Zero(link.TotalClicks)
		suite.Nil(link.LastClicked)
		suite.False(link.CreatedAt.IsZero())
	})

	suite.Run("duplicate code", func() {
		_, err := suite.linkRepo.Save(ctx, "abc123", "https://example.com")
		suite.Require().NoError(err)

		link, err := suite.linkRepo.Save(ctx, "abc123", "https://other.example.com")

		suite.ErrorIs(err, entity.ErrCodeExists)
		suite.Nil(link)

		got, err := suite.linkRepo.RetrieveByCode(ctx, "abc123")
		suite.NoError(err)
		suite.Equal("https://example.com", got.TargetURL)
	})

	suite.Run("codes are case sensitive", func() {
		_, err := suite.linkRepo.Save(ctx, "abcdef", "https://example.com/lower")
		suite.Require().NoError(err)

		_, err = suite.linkRepo.Save(ctx, "ABCDEF", "https://example.com/upper")
		suite.NoError(err)
	})
}

func (suite *LinkRepositoryIntegrationTestSuite) TestRetrieveAll() {
	ctx := context.Background()

	suite.Run("empty", func() {
		links, err := suite.linkRepo.RetrieveAll(ctx)

		suite.NoError(err)
		suite.NotNil(links)
		suite.Empty(links)
	})

	suite.Run("newest first", func() {
		for _, code := range []string{"first1", "second", "third3"} {
			_, err := suite.linkRepo.Save(ctx, code, "https://example.com/"+code)
			suite.Require().NoError(err)
		}

		links, err := suite.linkRepo.RetrieveAll(ctx)

		suite.NoError(err)
		suite.Len(links, 3)
		suite.Equal("third3", links[0].Code)
		suite.Equal("first1", links[2].Code)
	})
}

func (suite *LinkRepositoryIntegrationTestSuite) TestIncrementClicks() {
	ctx := context.Background()

	suite.Run("link not found", func() {
		link, err := suite.linkRepo.IncrementClicks(ctx, "nope00")

		suite.ErrorIs(err, entity.ErrLinkNotFound)
		suite.Nil(link)
	})

	suite.Run("sequential", func() {
		_, err := suite.linkRepo.Save(ctx, "seq123", "https://example.com")
		suite.Require().NoError(err)

		var prev *entity.Link
		for i := 1; i <= 5; i++ {
			link, err := suite.linkRepo.IncrementClicks(ctx, "seq123")
			suite.Require().NoError(err)
			suite.Equal(int64(i), link.TotalClicks)
			suite.Require().NotNil(link.LastClicked)

			if prev != nil {
				suite.False(link.LastClicked.Before(*prev.LastClicked))
			}
			prev = link
		}
	})

	suite.Run("concurrent", func() {
		const n = 50

		_, err := suite.linkRepo.Save(ctx, "con123", "https://example.com")
		suite.Require().NoError(err)

		var wg sync.WaitGroup
		errs := make(chan error, n)

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := suite.linkRepo.IncrementClicks(ctx, "con123"); err != nil {
					errs <- err
				}
			}()
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			suite.NoError(err)
		}

		link, err := suite.linkRepo.RetrieveByCode(ctx, "con123")
		suite.NoError(err)
		suite.Equal(int64(n), link.TotalClicks)
		suite.NotNil(link.LastClicked)
	})
}

func (suite *LinkRepositoryIntegrationTestSuite) TestRemove() {
	ctx := context.Background()

	suite.Run("link not found", func() {
		link, err := suite.linkRepo.Remove(ctx, "nope00")

		suite.ErrorIs(err, entity.ErrLinkNotFound)
		suite.Nil(link)
	})

	suite.Run("success", func() {
		_, err := suite.linkRepo.Save(ctx, "del123", "https://example.com")
		suite.Require().NoError(err)

		link, err := suite.linkRepo.Remove(ctx, "del123")
		suite.NoError(err)
		suite.Equal("del123", link.Code)

		_, err = suite.linkRepo.RetrieveByCode(ctx, "del123")
		suite.ErrorIs(err, entity.ErrLinkNotFound)

		_, err = suite.linkRepo.Remove(ctx, "del123")
		suite.ErrorIs(err, entity.ErrLinkNotFound)
	})
}

func (suite *LinkRepositoryIntegrationTestSuite) TestLinkUseCaseScenario() {
	ctx := context.Background()
	uc := usecase.New("http://localhost:3000", suite.linkRepo)

	suite.Run("create redirect delete", func() {
		link, err := uc.CreateLink(ctx, "https://example.com", "abc123")
		suite.Require().NoError(err)
		suite.Equal("http://localhost:3000/abc123", uc.ShortURL(link.Code))

		_, err = uc.CreateLink(ctx, "https://other.example.com", "abc123")
		suite.ErrorIs(err, entity.ErrCodeExists)

		for i := 0; i < 3; i++ {
			target, err := uc.Redirect(ctx, "abc123")
			suite.Require().NoError(err)
			suite.Equal("https://example.com", target)
		}

		got, err := uc.GetLink(ctx, "abc123")
		suite.NoError(err)
		suite.Equal(int64(3), got.TotalClicks)
		suite.NotNil(got.LastClicked)

		err = uc.DeleteLink(ctx, "abc123")
		suite.NoError(err)

		_, err = uc.Redirect(ctx, "abc123")
		suite.ErrorIs(err, entity.ErrLinkNotFound)
	})

	suite.Run("generated code", func() {
		link, err := uc.CreateLink(ctx, "https://example.com/generated", "")
		suite.Require().NoError(err)
		suite.Len(link.Code, 6)

		links, err := uc.ListLinks(ctx)
		suite.NoError(err)
		suite.Len(links, 1)
		suite.Equal(link.Code, links[0].Code)
	})
}
