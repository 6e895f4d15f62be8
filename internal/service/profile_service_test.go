package service

import (
	"context"
	"testing"

	"fitlink/coach-api/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestProfileUpsertRoundTrip(t *testing.T) {
	users := newFakeUserRepo()
	profiles := newFakeTrainerProfileRepo()
	svc := NewProfileService(users, profiles, newFakeStorage())
	ctx := context.Background()

	userID, err := users.Create(ctx, &domain.User{Email: "coach@example.com", Role: domain.RoleTrainer})
	require.NoError(t, err)

	// No profile yet is an empty state, not an error.
	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, profile)

	profile, err = svc.UpdateProfile(ctx, userID, UpdateProfileInput{
		GymName:     "Box Norte",
		Specialties: []string{"fuerza", "movilidad"},
		SocialLinks: domain.SocialLinks{"instagram": "@coach"},
	})
	require.NoError(t, err)
	require.Equal(t, "Box Norte", profile.GymName)

	// A second update keeps the same row.
	updated, err := svc.UpdateProfile(ctx, userID, UpdateProfileInput{GymName: "Box Sur"})
	require.NoError(t, err)
	require.Equal(t, profile.ID, updated.ID)
	require.Equal(t, "Box Sur", updated.GymName)
}

func TestUploadAvatarValidatesAndPatchesUser(t *testing.T) {
	users := newFakeUserRepo()
	profiles := newFakeTrainerProfileRepo()
	store := newFakeStorage()
	svc := NewProfileService(users, profiles, store)
	ctx := context.Background()

	userID, err := users.Create(ctx, &domain.User{Email: "coach@example.com", Role: domain.RoleTrainer})
	require.NoError(t, err)

	_, err = svc.UploadAvatar(ctx, userID, "cv.pdf", "application/pdf", []byte("x"))
	require.ErrorIs(t, err, ErrAvatarNotImage)

	_, err = svc.UploadAvatar(ctx, userID, "big.png", "image/png", make([]byte, MaxAvatarBytes+1))
	require.ErrorIs(t, err, ErrAvatarTooLarge)

	url, err := svc.UploadAvatar(ctx, userID, "face.png", "image/png", []byte("png"))
	require.NoError(t, err)
	require.Contains(t, url, "avatars/"+userID.Hex()+"/")
	require.Equal(t, url, users.users[userID].Avatar)
	require.Len(t, store.uploads, 1)
}

func TestUploadAvatarRemovesReplacedObject(t *testing.T) {
	users := newFakeUserRepo()
	store := newFakeStorage()
	svc := NewProfileService(users, newFakeTrainerProfileRepo(), store)
	ctx := context.Background()

	userID, err := users.Create(ctx, &domain.User{Email: "coach@example.com", Role: domain.RoleTrainer})
	require.NoError(t, err)

	first, err := svc.UploadAvatar(ctx, userID, "one.png", "image/png", []byte("a"))
	require.NoError(t, err)
	second, err := svc.UploadAvatar(ctx, userID, "two.png", "image/png", []byte("b"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// Only the replacement object remains in the bucket.
	require.Len(t, store.uploads, 1)
	require.Contains(t, second, onlyKey(store.uploads))
}

// onlyKey returns the single key of a one-entry map.
func onlyKey(m map[string][]byte) string {
	for k := range m {
		return k
	}
	return ""
}

func TestCertificateDownloadURL(t *testing.T) {
	users := newFakeUserRepo()
	profiles := newFakeTrainerProfileRepo()
	store := newFakeStorage()
	svc := NewProfileService(users, profiles, store)
	ctx := context.Background()

	userID, err := users.Create(ctx, &domain.User{Email: "coach@example.com", Role: domain.RoleTrainer})
	require.NoError(t, err)

	// No profile at all.
	_, err = svc.CertificateDownloadURL(ctx, userID)
	require.ErrorIs(t, err, ErrCertificateMissing)

	// Profile without a certificate.
	_, err = svc.UpdateProfile(ctx, userID, UpdateProfileInput{GymName: "Box Norte"})
	require.NoError(t, err)
	_, err = svc.CertificateDownloadURL(ctx, userID)
	require.ErrorIs(t, err, ErrCertificateMissing)

	require.NoError(t, profiles.SetCertificateURL(ctx, userID, "https://cdn.test/certificates/"+userID.Hex()+"/1-cv.pdf"))
	url, err := svc.CertificateDownloadURL(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/presigned/certificates/"+userID.Hex()+"/1-cv.pdf", url)
}
