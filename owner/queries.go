package owner

import "github.com/teranos/pam/recordstore"

// Access modes excluded from the user directory, and the owner-team subtype.
const (
	AccessModeNonInteractive = 3
	AccessModeDelegatedAdmin = 5
	TeamTypeOwner            = 0
)

const (
	userEntity           = "systemuser"
	userIDColumn         = "systemuserid"
	userNameColumn       = "fullname"
	userDisabledColumn   = "isdisabled"
	userAccessModeColumn = "accessmode"
	userEmailColumn      = "internalemailaddress"
	userRolesEntity      = "systemuserroles"

	teamEntity     = "team"
	teamIDColumn   = "teamid"
	teamNameColumn = "name"
	teamTypeColumn = "teamtype"
)

// UserQuery selects active, interactive users holding at least one security role.
func UserQuery() recordstore.Query {
	return recordstore.Query{
		Entity:  userEntity,
		Columns: []string{userIDColumn, userNameColumn, userDisabledColumn, userEmailColumn, userAccessModeColumn},
		Conditions: []recordstore.Condition{
			recordstore.Eq(userDisabledColumn, false),
			recordstore.NotOneOf(userAccessModeColumn, AccessModeNonInteractive, AccessModeDelegatedAdmin),
		},
		Links: []recordstore.Link{{
			Entity: userRolesEntity,
			From:   userIDColumn,
			To:     userIDColumn,
			Join:   recordstore.JoinInner,
		}},
		Orders:   []recordstore.Order{{Field: userNameColumn}},
		Distinct: true,
	}
}

// TeamQuery selects owner teams.
func TeamQuery() recordstore.Query {
	return recordstore.Query{
		Entity:     teamEntity,
		Columns:    []string{teamIDColumn, teamTypeColumn, teamNameColumn},
		Conditions: []recordstore.Condition{recordstore.Eq(teamTypeColumn, TeamTypeOwner)},
		Orders:     []recordstore.Order{{Field: teamNameColumn}},
		Distinct:   true,
	}
}
