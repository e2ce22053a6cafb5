package schema

import "github.com/jrazmi/growlog/sdk/validation"

// Model names.
const (
	User    = "User"
	Account = "Account"
	Session = "Session"
	Plant   = "Plant"
	Strain  = "Strain"
	Log     = "Log"
	Tag     = "Tag"
)

// PlantTags backs the Plant <-> Tag relation.
var PlantTags = &Link{Table: "plant_tags", SourceColumn: "plant_id", TargetColumn: "tag_id"}

var tagPlants = &Link{Table: PlantTags.Table, SourceColumn: PlantTags.TargetColumn, TargetColumn: PlantTags.SourceColumn}

// Default is the grow journal schema.
var Default = MustNew(
	&Model{
		Name:  User,
		Table: "users",
		Fields: []*Field{
			id(),
			nullable(scalar("name", KindString)),
			unique(scalar("email", KindString)),
			nullable(scalar("emailVerified", KindDateTime)),
			nullable(scalar("image", KindString)),
			withDefault(enum("role", RoleEnum), string(RoleUser)),
			list(enum("permissions", PermissionEnum)),
			now("createdAt"),
			now("updatedAt"),
		},
		Relations: []*Relation{
			hasMany("plants", Plant, "userId"),
			hasMany("logs", Log, "userId"),
			hasMany("strains", Strain, "userId"),
			hasMany("accounts", Account, "userId"),
			hasMany("sessions", Session, "userId"),
		},
	},
	&Model{
		Name:  Account,
		Table: "accounts",
		Fields: []*Field{
			id(),
			scalar("userId", KindString),
			scalar("type", KindString),
			scalar("provider", KindString),
			scalar("providerAccountId", KindString),
			nullable(scalar("refresh_token", KindString)),
			nullable(scalar("access_token", KindString)),
			nullable(scalar("expires_at", KindInt)),
			nullable(scalar("token_type", KindString)),
			nullable(scalar("scope", KindString)),
			nullable(scalar("id_token", KindString)),
			nullable(scalar("session_state", KindString)),
		},
		Relations: []*Relation{
			belongsTo("user", User, "userId", Cascade),
		},
		CompoundUniques: [][]string{{"provider", "providerAccountId"}},
	},
	&Model{
		Name:  Session,
		Table: "sessions",
		Fields: []*Field{
			id(),
			unique(scalar("sessionToken", KindString)),
			scalar("userId", KindString),
			scalar("expires", KindDateTime),
		},
		Relations: []*Relation{
			belongsTo("user", User, "userId", Cascade),
		},
	},
	&Model{
		Name:  Plant,
		Table: "plants",
		Fields: []*Field{
			id(),
			scalar("name", KindString),
			nullable(scalar("strainId", KindString)),
			withDefault(enum("stage", StageEnum), string(StageSeedling)),
			nullable(scalar("location", KindString)),
			now("startDate"),
			nullable(scalar("harvestDate", KindDateTime)),
			nullable(scalar("notes", KindString)),
			nullable(scalar("imageUrl", KindString)),
			now("createdAt"),
			now("updatedAt"),
			scalar("userId", KindString),
		},
		Relations: []*Relation{
			optionalBelongsTo("strain", Strain, "strainId", SetNull),
			belongsTo("user", User, "userId", Cascade),
			hasMany("logs", Log, "plantId"),
			{Name: "tags", Kind: ManyToMany, Target: Tag, Link: PlantTags},
		},
	},
	&Model{
		Name:  Strain,
		Table: "strains",
		Fields: []*Field{
			id(),
			scalar("name", KindString),
			nullable(scalar("type", KindString)),
			nullable(scalar("description", KindString)),
			nullable(scalar("imageUrl", KindString)),
			nullable(scalar("floweringTime", KindInt)),
			nullable(scalar("thcContent", KindFloat)),
			nullable(scalar("cbdContent", KindFloat)),
			now("createdAt"),
			now("updatedAt"),
			scalar("userId", KindString),
		},
		Relations: []*Relation{
			hasMany("plants", Plant, "strainId"),
			belongsTo("user", User, "userId", Cascade),
		},
	},
	&Model{
		Name:  Log,
		Table: "logs",
		Fields: []*Field{
			id(),
			now("date"),
			withDefault(enum("type", LogTypeEnum), string(LogTypeGeneral)),
			withDefault(enum("stage", StageEnum), string(StageSeedling)),
			nullable(scalar("temperature", KindFloat)),
			nullable(scalar("humidity", KindFloat)),
			nullable(scalar("ph", KindFloat)),
			nullable(scalar("ec", KindFloat)),
			nullable(scalar("par", KindFloat)),
			nullable(scalar("waterAmount", KindFloat)),
			list(scalar("nutrients", KindString)),
			nullable(scalar("notes", KindString)),
			nullable(scalar("imageUrl", KindString)),
			scalar("plantId", KindString),
			scalar("userId", KindString),
			now("createdAt"),
			now("updatedAt"),
			nullable(scalar("data", KindJSON)),
		},
		Relations: []*Relation{
			belongsTo("plant", Plant, "plantId", Cascade),
			belongsTo("user", User, "userId", Cascade),
		},
	},
	&Model{
		Name:  Tag,
		Table: "tags",
		Fields: []*Field{
			id(),
			unique(scalar("name", KindString)),
			nullable(scalar("color", KindString)),
			now("createdAt"),
		},
		Relations: []*Relation{
			{Name: "plants", Kind: ManyToMany, Target: Plant, Link: tagPlants},
		},
	},
)

func scalar(name string, kind Kind) *Field {
	return &Field{Name: name, Column: validation.ToSnakeCase(name), Kind: kind}
}

func id() *Field {
	f := scalar("id", KindString)
	f.ID = true
	f.Default = DefaultID
	return f
}

func enum(name string, e *Enum) *Field {
	f := scalar(name, KindEnum)
	f.Enum = e
	return f
}

func now(name string) *Field {
	f := scalar(name, KindDateTime)
	f.Default = DefaultNow
	return f
}

func nullable(f *Field) *Field {
	f.Nullable = true
	return f
}

func unique(f *Field) *Field {
	f.Unique = true
	return f
}

func list(f *Field) *Field {
	f.List = true
	f.Default = DefaultValue
	f.DefaultValue = []string{}
	return f
}

func withDefault(f *Field, v any) *Field {
	f.Default = DefaultValue
	f.DefaultValue = v
	return f
}

func belongsTo(name, target, fk string, onDelete Action) *Relation {
	return &Relation{Name: name, Kind: ToOne, Target: target, ForeignKey: fk, OnDelete: onDelete}
}

func optionalBelongsTo(name, target, fk string, onDelete Action) *Relation {
	r := belongsTo(name, target, fk, onDelete)
	r.Optional = true
	return r
}

func hasMany(name, target, fk string) *Relation {
	return &Relation{Name: name, Kind: ToMany, Target: target, ForeignKey: fk}
}
