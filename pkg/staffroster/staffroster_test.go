package staffroster

import (
	"context"
	"strings"
	"testing"

	"github.com/lakpahana/discord-forum/pkg/store"
	"github.com/stretchr/testify/require"
)

type fakeRoleWriter struct {
	roles []store.StaffRole
}

func (f *fakeRoleWriter) UpsertStaffRole(ctx context.Context, actor string, role store.StaffRole) error {
	f.roles = append(f.roles, role)
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Alias(userID string) string {
	return "alias-" + userID
}

func TestImportSkipsEmptyAndMalformedRows(t *testing.T) {
	csv := "111111111,moderator\n\n   ,ignored\n222222222,   \n333333333,   admin   \n"

	writer := &fakeRoleWriter{}
	n, err := Import(context.Background(), strings.NewReader(csv), writer, fakeHasher{}, "bootstrap")

	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, writer.roles, 2)
	require.Equal(t, "alias-111111111", writer.roles[0].UserIDHash)
	require.Equal(t, "moderator", writer.roles[0].PublicTag)
	require.Equal(t, "admin", writer.roles[1].PublicTag)
}

func TestImportTrimsWhitespace(t *testing.T) {
	csv := "  444444444  ,  staff  \n"

	writer := &fakeRoleWriter{}
	n, err := Import(context.Background(), strings.NewReader(csv), writer, fakeHasher{}, "bootstrap")

	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "staff", writer.roles[0].PublicTag)
}

func TestImportStampsAddedBy(t *testing.T) {
	writer := &fakeRoleWriter{}
	_, err := Import(context.Background(), strings.NewReader("555555555,lead\n"), writer, fakeHasher{}, "csv-bootstrap")

	require.NoError(t, err)
	require.Equal(t, "csv-bootstrap", writer.roles[0].AddedBy)
	require.False(t, writer.roles[0].AddedAt.IsZero())
}
