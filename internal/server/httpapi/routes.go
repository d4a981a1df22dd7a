package httpapi

import (
	"github.com/dmitrijs2005/tutorhub/internal/common"
	"github.com/dmitrijs2005/tutorhub/internal/server/models"
)

func (s *Server) routes() {
	app := s.app

	app.Post("/sign-up", s.signUp)
	app.Post("/sign-in", s.signIn)
	app.Post("/forgot-password", s.forgotPassword)
	app.Post("/reset-password/:token", s.resetPassword)
	app.Get("/verify-email/:token", s.verifyEmail)
	app.Post("/resend-verification", s.resendVerification)
	app.Get("/authenticate", s.requireAuth, s.currentAccount)
	app.Get("/verify-user", s.requireAuth, s.verifyUser)

	core := app.Group("/core")
	core.Post("/check-user-by-email", s.optionalAuth, s.checkUserByEmail)
	core.Post("/create-new-tutor", s.createNewTutor)
	core.Get("/get-testimonials", s.getTestimonials)
	core.Post("/testimonial", s.requireAuth, s.setTestimonial)
	admin := s.requireRole(common.RoleAdmin)
	for _, kind := range []models.TaxonomyKind{models.KindSubject, models.KindLanguage} {
		core.Post("/add-"+kind.Plural(), s.requireAuth, admin, s.addTaxonomy(kind, true))
		core.Post("/add-"+string(kind), s.requireAuth, admin, s.addTaxonomy(kind, false))
		core.Get("/get-"+kind.Plural(), s.listTaxonomy(kind))
	}

	app.Get("/get-user-profile", s.requireAuth, s.getUserProfile)
	app.Post("/update-user-profile", s.requireAuth, s.updateUserProfile)

	settings := app.Group("/settings", s.requireAuth)
	settings.Get("/get-public-profile", s.getPublicProfile)
	settings.Post("/update-public-profile", s.updatePublicProfile)
	settings.Delete("/remove-profile-project/:projectId", s.removeProject)
	settings.Get("/get-profile-image", s.getProfileImage)
	settings.Post("/upload-profile-picture", s.uploadProfilePicture)
	settings.Delete("/remove-profile-image", s.removeProfileImage)
}
