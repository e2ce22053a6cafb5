package schema

// Role is the authorization role carried by a user.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
)

// Permission is a single capability granted to a user.
type Permission string

const (
	PermissionCreatePlant   Permission = "CREATE_PLANT"
	PermissionEditPlant     Permission = "EDIT_PLANT"
	PermissionDeletePlant   Permission = "DELETE_PLANT"
	PermissionCreateLog     Permission = "CREATE_LOG"
	PermissionEditLog       Permission = "EDIT_LOG"
	PermissionDeleteLog     Permission = "DELETE_LOG"
	PermissionManageUsers   Permission = "MANAGE_USERS"
	PermissionManageRoles   Permission = "MANAGE_ROLES"
	PermissionManageStrains Permission = "MANAGE_STRAINS"
)

// LogType classifies a grow log entry.
type LogType string

const (
	LogTypeWatering      LogType = "WATERING"
	LogTypeFeeding       LogType = "FEEDING"
	LogTypeEnvironmental LogType = "ENVIRONMENTAL"
	LogTypePruning       LogType = "PRUNING"
	LogTypeTraining      LogType = "TRAINING"
	LogTypeDefoliation   LogType = "DEFOLIATION"
	LogTypeFlushing      LogType = "FLUSHING"
	LogTypeHarvest       LogType = "HARVEST"
	LogTypePestDisease   LogType = "PEST_DISEASE"
	LogTypeGeneral       LogType = "GENERAL"
)

// Stage is the growth stage of a plant.
type Stage string

const (
	StageSeedling   Stage = "SEEDLING"
	StageVegetative Stage = "VEGETATIVE"
	StageFlowering  Stage = "FLOWERING"
	StageHarvest    Stage = "HARVEST"
	StageDrying     Stage = "DRYING"
	StageCuring     Stage = "CURING"
)

// Enum describes a closed set of string literals.
type Enum struct {
	Name   string
	Values []string
}

// Has reports whether v is one of the enum's literals.
func (e *Enum) Has(v string) bool {
	for _, candidate := range e.Values {
		if candidate == v {
			return true
		}
	}
	return false
}

var (
	RoleEnum = &Enum{Name: "Role", Values: []string{
		string(RoleAdmin), string(RoleUser), string(RoleModerator),
	}}

	PermissionEnum = &Enum{Name: "Permission", Values: []string{
		string(PermissionCreatePlant), string(PermissionEditPlant), string(PermissionDeletePlant),
		string(PermissionCreateLog), string(PermissionEditLog), string(PermissionDeleteLog),
		string(PermissionManageUsers), string(PermissionManageRoles), string(PermissionManageStrains),
	}}

	LogTypeEnum = &Enum{Name: "LogType", Values: []string{
		string(LogTypeWatering), string(LogTypeFeeding), string(LogTypeEnvironmental),
		string(LogTypePruning), string(LogTypeTraining), string(LogTypeDefoliation),
		string(LogTypeFlushing), string(LogTypeHarvest), string(LogTypePestDisease),
		string(LogTypeGeneral),
	}}

	StageEnum = &Enum{Name: "Stage", Values: []string{
		string(StageSeedling), string(StageVegetative), string(StageFlowering),
		string(StageHarvest), string(StageDrying), string(StageCuring),
	}}
)
