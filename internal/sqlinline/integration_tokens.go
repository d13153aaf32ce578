package sqlinline

const QSelectIntegrationToken = `--sql b97793e6-3b9e-4636-a775-c44c720c6ede
select token
from integration_tokens
where provider = $1::text
  and token <> ''
limit 1;
`

const QUpsertIntegrationToken = `--sql cf7c0c8d-ace2-455d-8b7a-977a1e039397
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
