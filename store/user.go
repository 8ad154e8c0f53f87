package store

type User struct {
	ID           int32
	Username     string
	Email        string
	PasswordHash string
	Nickname     string
	RowStatus    RowStatus
	CreatedTs    int64
}

type FindUser struct {
	ID        *int32
	Username  *string
	Email     *string
	RowStatus *RowStatus
}

type UpdateUser struct {
	ID           int32
	Email        *string
	Nickname     *string
	PasswordHash *string
	RowStatus    *RowStatus
}
