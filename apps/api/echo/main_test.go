package echoapi

import (
	"io"
	"log"
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/campusdesk/core"
	logsvc "github.com/trezcool/campusdesk/services/logger"
)

func TestMain(m *testing.M) {
	core.PasswordHashCost = bcrypt.MinCost
	core.ParseEmailTemplates(core.NewTestConfig(), logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig()))
	os.Exit(m.Run())
}
