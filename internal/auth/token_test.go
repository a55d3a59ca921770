package auth_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/platformkit/user-management/internal"
	"github.com/platformkit/user-management/internal/auth"
)

var _ = Describe("TokenCodec", func() {
	var codec *auth.TokenCodec

	BeforeEach(func() {
		codec = newTestCodec()
	})

	Describe("NewTokenCodec", func() {
		It("rejects an empty secret", func() {
			_, err := auth.NewTokenCodec(&internal.SecurityConfig{
				JWTSecret:       "",
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 2 * time.Hour,
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a secret shorter than 32 characters", func() {
			_, err := auth.NewTokenCodec(&internal.SecurityConfig{
				JWTSecret:       "too-short",
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 2 * time.Hour,
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects an unsupported algorithm", func() {
			_, err := auth.NewTokenCodec(&internal.SecurityConfig{
				JWTSecret:       testSecret,
				JWTAlgorithm:    "RS256",
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 2 * time.Hour,
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Issue and Verify", func() {
		It("round-trips subject and kind", func() {
			token, err := codec.IssueAccess("subject-1")
			Expect(err).NotTo(HaveOccurred())

			claims, err := codec.Verify(token, auth.TokenKindAccess)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Subject).To(Equal("subject-1"))
			Expect(claims.Kind).To(Equal(auth.TokenKindAccess))
			Expect(claims.ExpiresAt).NotTo(BeNil())
			Expect(claims.IssuedAt).NotTo(BeNil())
			Expect(claims.ID).NotTo(BeEmpty())
		})

		It("rejects an access token verified as refresh and vice versa", func() {
			access, err := codec.IssueAccess("subject-1")
			Expect(err).NotTo(HaveOccurred())
			refresh, err := codec.IssueRefresh("subject-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = codec.Verify(access, auth.TokenKindRefresh)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())

			_, err = codec.Verify(refresh, auth.TokenKindAccess)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("rejects an expired token", func() {
			token, err := codec.Issue("subject-1", auth.TokenKindAccess, -time.Minute)
			Expect(err).NotTo(HaveOccurred())

			_, err = codec.Verify(token, auth.TokenKindAccess)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("rejects a tampered token", func() {
			token, err := codec.IssueAccess("subject-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = codec.Verify(token[:len(token)-2]+"xx", auth.TokenKindAccess)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("rejects a token signed with a different secret", func() {
			other, err := auth.NewTokenCodec(&internal.SecurityConfig{
				JWTSecret:       "another-secret-another-secret-00",
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 2 * time.Hour,
			})
			Expect(err).NotTo(HaveOccurred())

			token, err := other.IssueAccess("subject-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = codec.Verify(token, auth.TokenKindAccess)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("rejects a token signed with a different algorithm", func() {
			hs512, err := auth.NewTokenCodec(&internal.SecurityConfig{
				JWTSecret:       testSecret,
				JWTAlgorithm:    "HS512",
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 2 * time.Hour,
			})
			Expect(err).NotTo(HaveOccurred())

			token, err := hs512.IssueAccess("subject-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = codec.Verify(token, auth.TokenKindAccess)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})

		It("rejects garbage input", func() {
			_, err := codec.Verify("not-a-token", auth.TokenKindAccess)
			Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
		})
	})

	Describe("ExpiresIn", func() {
		It("reports whole seconds", func() {
			Expect(auth.ExpiresIn(time.Hour)).To(Equal(int64(3600)))
			Expect(auth.ExpiresIn(90 * time.Second)).To(Equal(int64(90)))
		})
	})
})
