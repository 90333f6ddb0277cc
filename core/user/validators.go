package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campusdesk/core"
)

var (
	userRoleTag  = "userrole"
	userRoleText = "invalid role"

	roleIDTag  = "roleid"
	roleIDText = "this id does not match the user role"
)

// InitValidators registers the user validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(userRoleTag, userRoleValidation)
	core.RegisterCustomTranslation(validate, translator, userRoleTag, userRoleText)
	core.RegisterCustomTranslation(validate, translator, roleIDTag, roleIDText)
	core.RegisterPasswordTranslations(validate, translator)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, ChangePassword{}, ResetUserPassword{})
}

func userRoleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).IsValid()
}

// userStructValidation does struct level validation on NewUser, ChangePassword and ResetUserPassword.
func userStructValidation(sl validator.StructLevel) {
	switch data := sl.Current().Interface().(type) {
	case NewUser:
		// studentId is only for students, staffId only for staff
		if data.StudentID != "" && data.Role != RoleStudent {
			sl.ReportError(data.StudentID, "studentId", "StudentID", roleIDTag, "")
		}
		if data.StaffID != "" && data.Role != RoleStaff {
			sl.ReportError(data.StaffID, "staffId", "StaffID", roleIDTag, "")
		}
		if data.Password != "" {
			core.ReportPasswordPolicy(sl, data.Password, "password", "Password",
				data.Name, data.Email, data.StudentID, data.StaffID)
		}
	case ChangePassword:
		if data.NewPassword != "" {
			core.ReportPasswordPolicy(sl, data.NewPassword, "newPassword", "NewPassword")
		}
	case ResetUserPassword:
		if data.Password != "" {
			core.ReportPasswordPolicy(sl, data.Password, "password", "Password")
		}
	}
}
