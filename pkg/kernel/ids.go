package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

type RealmID string

func NewRealmID(id string) RealmID { return RealmID(id) }
func (r RealmID) String() string   { return string(r) }
func (r RealmID) IsEmpty() bool    { return string(r) == "" }

// ClientID is the internal primary key of a client, not its public
// "client_..." identifier.
type ClientID string

func NewClientID(id string) ClientID { return ClientID(id) }
func (c ClientID) String() string    { return string(c) }
func (c ClientID) IsEmpty() bool     { return string(c) == "" }

type RoleID string

func NewRoleID(id string) RoleID { return RoleID(id) }
func (r RoleID) String() string  { return string(r) }
func (r RoleID) IsEmpty() bool   { return string(r) == "" }

type TokenID string

func (t TokenID) String() string { return string(t) }
func (t TokenID) IsEmpty() bool  { return string(t) == "" }
