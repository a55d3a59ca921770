package auth_test

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/platformkit/user-management/internal/auth"
)

var _ = Describe("Permission Evaluator", func() {
	var (
		roles     *MockRoleStore
		evaluator *auth.Evaluator
		ctx       context.Context
		roleID    uuid.UUID
		member    *auth.User
	)

	BeforeEach(func() {
		roles = NewMockRoleStore()
		evaluator = auth.NewEvaluator(roles, slog.Default())
		ctx = context.Background()

		roleID = uuid.New()
		roles.Grant(roleID, "users", "read")

		member = &auth.User{
			ID:       uuid.New(),
			IsActive: true,
			Roles:    []auth.Role{{ID: roleID, Name: "viewer"}},
		}
	})

	It("denies a nil user", func() {
		allowed, err := evaluator.Check(ctx, nil, "users", "read")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeFalse())
	})

	It("allows a superuser without consulting the role store", func() {
		super := &auth.User{ID: uuid.New(), IsSuperuser: true}

		allowed, err := evaluator.Check(ctx, super, "anything", "at-all")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeTrue())
		Expect(roles.calls).To(BeZero())
	})

	It("matches on the exact (resource, action) pair only", func() {
		allowed, err := evaluator.Check(ctx, member, "users", "read")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeTrue())

		allowed, err = evaluator.Check(ctx, member, "users", "delete")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeFalse())

		allowed, err = evaluator.Check(ctx, member, "roles", "read")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeFalse())
	})

	It("denies a user with no roles", func() {
		member.Roles = nil

		allowed, err := evaluator.Check(ctx, member, "users", "read")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeFalse())
	})

	It("reads the store on every check instead of caching", func() {
		allowed, err := evaluator.Check(ctx, member, "users", "read")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeTrue())

		roles.perms[roleID] = nil

		allowed, err = evaluator.Check(ctx, member, "users", "read")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeFalse())
		Expect(roles.calls).To(Equal(2))
	})

	It("scans additional roles until a match is found", func() {
		adminRole := uuid.New()
		roles.Grant(adminRole, "users", "delete")
		member.Roles = append(member.Roles, auth.Role{ID: adminRole, Name: "admin"})

		allowed, err := evaluator.Check(ctx, member, "users", "delete")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeTrue())
	})

	It("wraps store failures as unavailable instead of denying", func() {
		roles.failErr = errors.New("connection refused")

		_, err := evaluator.Check(ctx, member, "users", "read")
		Expect(errors.Is(err, auth.ErrStoreUnavailable)).To(BeTrue())
	})
})
