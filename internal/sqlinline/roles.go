package sqlinline

const QSelectUserRoles = `--sql a6e82b19-3d47-40cf-95e1-7b28c64f0da5
select role from user_roles where user_id = $1::uuid;
`

const QSelectAllUserRoles = `--sql 04d7c3ae-85f2-4b61-bd90-3e158a6c27f4
select user_id, role from user_roles;
`

const QGrantUserRole = `--sql c93b50e6-1a78-4d2f-86b4-f05d219ce837
insert into user_roles (user_id, role)
values ($1::uuid, $2)
on conflict (user_id, role) do nothing;
`

const QRevokeUserRole = `--sql 6f15a8d2-b0c4-49e7-a3d8-82c7e95f1b06
delete from user_roles where user_id = $1::uuid and role = $2;
`
